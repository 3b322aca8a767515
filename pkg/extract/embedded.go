package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
)

// EmbeddedImage is the raw result of scanning an HTML fragment for its first image.
type EmbeddedImage struct {
	URL     string
	AltText string
	Credit  string
}

// ImageParser finds the first image in an HTML fragment.
type ImageParser interface {
	FirstImage(fragment string) (EmbeddedImage, bool)
}

// EmbeddedStrategy recovers at most one image from an HTML content field.
type EmbeddedStrategy struct {
	Content  feedtree.Path
	Parser   ImageParser
	Denylist []string
}

func (s EmbeddedStrategy) Images(item *feedtree.Node) []domain.ImageDescriptor {
	fragment, ok := item.Lookup(s.Content)
	if !ok {
		return []domain.ImageDescriptor{}
	}
	return s.FromFragment(fragment)
}

// FromFragment applies the parser and the deny-list to one fragment.
func (s EmbeddedStrategy) FromFragment(fragment string) []domain.ImageDescriptor {
	parser := s.Parser
	if parser == nil {
		parser = RegexImageParser{}
	}

	img, ok := parser.FirstImage(fragment)
	if !ok || s.denied(img.URL) {
		return []domain.ImageDescriptor{}
	}

	d := domain.ImageDescriptor{URL: img.URL, Type: domain.ImageTypeEmbedded}
	if img.AltText != "" {
		alt := img.AltText
		d.AltText = &alt
	}
	if img.Credit != "" {
		credit := img.Credit
		d.Credit = &credit
	}
	return []domain.ImageDescriptor{d}
}

func (s EmbeddedStrategy) denied(url string) bool {
	for _, marker := range s.Denylist {
		if marker != "" && strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

var (
	imgTagRe  = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	srcAttrRe = regexp.MustCompile(`(?is)\ssrc\s*=\s*(?:'([^']*)'|"([^"]*)")`)
	altAttrRe = regexp.MustCompile(`(?is)\salt\s*=\s*(?:'([^']*)'|"([^"]*)")`)
	creditRe  = regexp.MustCompile(`\(Image credit: ([^)]+)\)`)
)

// RegexImageParser scans the fragment with regular expressions.
type RegexImageParser struct{}

func (RegexImageParser) FirstImage(fragment string) (EmbeddedImage, bool) {
	for _, tag := range imgTagRe.FindAllString(fragment, -1) {
		src := attrValue(srcAttrRe, tag)
		if src == "" {
			continue
		}
		return EmbeddedImage{
			URL:     src,
			AltText: attrValue(altAttrRe, tag),
			Credit:  imageCredit(fragment),
		}, true
	}
	return EmbeddedImage{}, false
}

func attrValue(re *regexp.Regexp, tag string) string {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

func imageCredit(text string) string {
	m := creditRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// HTMLImageParser parses the fragment as HTML with goquery.
type HTMLImageParser struct{}

func (HTMLImageParser) FirstImage(fragment string) (EmbeddedImage, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return EmbeddedImage{}, false
	}

	var (
		out   EmbeddedImage
		found bool
	)
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if src = strings.TrimSpace(src); src == "" {
			return true
		}
		out.URL = src
		if alt, ok := sel.Attr("alt"); ok {
			out.AltText = strings.TrimSpace(alt)
		}
		found = true
		return false
	})
	if !found {
		return EmbeddedImage{}, false
	}

	out.Credit = imageCredit(doc.Text())
	return out, true
}
