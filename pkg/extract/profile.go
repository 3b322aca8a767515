package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
)

// ItemLocation selects where item elements are searched for.
type ItemLocation string

const (
	// LocationChannel requires a channel element directly under the root and reads its item children.
	LocationChannel ItemLocation = "channel"
	// LocationAnywhere reads item elements at any depth below the root.
	LocationAnywhere ItemLocation = "anywhere"

	StrategyNone     = "none"
	StrategyMedia    = "media"
	StrategyEmbedded = "embedded"

	ParserRegex = "regex"
	ParserHTML  = "html"

	defaultItemPath = "item"
)

// DefaultDenylist holds URL markers of tracking pixels seen in provider content.
var DefaultDenylist = []string{"tracking", "npr-rss-pixel"}

// ProfileConfig is the declarative, per-provider description of an item schema.
type ProfileConfig struct {
	ItemLocation   string            `json:"item_location" yaml:"item_location"`
	ItemPath       string            `json:"item_path" yaml:"item_path"`
	Namespaces     map[string]string `json:"namespaces" yaml:"namespaces"`
	DescriptionKey string            `json:"description_key" yaml:"description_key"`
	Fields         FieldPaths        `json:"fields" yaml:"fields"`
	Images         ImageConfig       `json:"images" yaml:"images"`
}

// FieldPaths holds element paths relative to an item. Empty paths are not extracted.
type FieldPaths struct {
	Title       string `json:"title" yaml:"title"`
	Link        string `json:"link" yaml:"link"`
	Description string `json:"description" yaml:"description"`
	PubDate     string `json:"pub_date" yaml:"pub_date"`
	Author      string `json:"author" yaml:"author"`
	GUID        string `json:"guid" yaml:"guid"`
	Categories  string `json:"categories" yaml:"categories"`
}

type ImageConfig struct {
	Strategy string         `json:"strategy" yaml:"strategy"`
	Media    MediaConfig    `json:"media" yaml:"media"`
	Embedded EmbeddedConfig `json:"embedded" yaml:"embedded"`
}

type MediaConfig struct {
	Content     string `json:"content" yaml:"content"`
	Thumbnail   string `json:"thumbnail" yaml:"thumbnail"`
	Medium      string `json:"medium" yaml:"medium"`
	Credit      string `json:"credit" yaml:"credit"`
	Description string `json:"description" yaml:"description"`
	Limit       int    `json:"limit" yaml:"limit"`
}

type EmbeddedConfig struct {
	Content  string   `json:"content" yaml:"content"`
	Parser   string   `json:"parser" yaml:"parser"`
	Denylist []string `json:"denylist" yaml:"denylist"`
}

// Profile is a compiled ProfileConfig, safe for concurrent use.
type Profile struct {
	location       ItemLocation
	channel        feedtree.Path
	items          feedtree.Path
	descriptionKey string

	title       feedtree.Path
	link        feedtree.Path
	description feedtree.Path
	pubDate     feedtree.Path
	author      feedtree.Path
	guid        feedtree.Path
	categories  feedtree.Path

	images ImageStrategy
}

// Compile validates the configuration and resolves every path.
func (c ProfileConfig) Compile() (*Profile, error) {
	ns := mergeNamespaces(c.Namespaces)

	p := &Profile{descriptionKey: strings.TrimSpace(c.DescriptionKey)}
	switch p.descriptionKey {
	case "":
		p.descriptionKey = domain.DescriptionKeySubline
	case domain.DescriptionKeySubline, domain.DescriptionKeyDescription:
	default:
		return nil, fmt.Errorf("description_key %q not supported", c.DescriptionKey)
	}

	itemPath := strings.TrimSpace(c.ItemPath)
	if itemPath == "" {
		itemPath = defaultItemPath
	}
	localPart := itemPath
	if strings.HasPrefix(localPart, "{") {
		if _, after, ok := strings.Cut(localPart, "}"); ok {
			localPart = after
		}
	}
	if strings.Contains(localPart, "/") {
		return nil, fmt.Errorf("item_path %q must be a single element name", itemPath)
	}

	var err error
	switch ItemLocation(strings.ToLower(strings.TrimSpace(c.ItemLocation))) {
	case LocationChannel:
		p.location = LocationChannel
		p.channel = feedtree.MustCompilePath("channel")
		p.items, err = feedtree.CompilePath(itemPath, ns)
	case LocationAnywhere, "":
		p.location = LocationAnywhere
		p.items, err = feedtree.CompilePath(".//"+itemPath, ns)
	default:
		return nil, fmt.Errorf("item_location %q not supported", c.ItemLocation)
	}
	if err != nil {
		return nil, fmt.Errorf("item_path: %w", err)
	}

	fields := []struct {
		name string
		expr string
		dst  *feedtree.Path
	}{
		{"title", c.Fields.Title, &p.title},
		{"link", c.Fields.Link, &p.link},
		{"description", c.Fields.Description, &p.description},
		{"pub_date", c.Fields.PubDate, &p.pubDate},
		{"author", c.Fields.Author, &p.author},
		{"guid", c.Fields.GUID, &p.guid},
		{"categories", c.Fields.Categories, &p.categories},
	}
	for _, f := range fields {
		if *f.dst, err = optionalPath(f.expr, ns); err != nil {
			return nil, fmt.Errorf("fields.%s: %w", f.name, err)
		}
	}

	if p.images, err = c.Images.compile(ns); err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}
	return p, nil
}

// Location reports the item location strategy.
func (p *Profile) Location() ItemLocation { return p.location }

func (c ImageConfig) compile(ns map[string]string) (ImageStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Strategy)) {
	case StrategyNone, "":
		return NoImages{}, nil
	case StrategyMedia:
		return c.Media.compile(ns)
	case StrategyEmbedded:
		return c.Embedded.compile(ns)
	default:
		return nil, fmt.Errorf("strategy %q not supported", c.Strategy)
	}
}

func (c MediaConfig) compile(ns map[string]string) (ImageStrategy, error) {
	if strings.TrimSpace(c.Content) == "" && strings.TrimSpace(c.Thumbnail) == "" {
		return nil, errors.New("media strategy needs a content or thumbnail path")
	}
	if c.Limit < 0 {
		return nil, fmt.Errorf("media.limit %d is negative", c.Limit)
	}

	s := MediaStrategy{Medium: strings.TrimSpace(c.Medium), Limit: c.Limit}
	var err error
	if s.Content, err = optionalPath(c.Content, ns); err != nil {
		return nil, fmt.Errorf("media.content: %w", err)
	}
	if s.Thumbnail, err = optionalPath(c.Thumbnail, ns); err != nil {
		return nil, fmt.Errorf("media.thumbnail: %w", err)
	}
	if s.Credit, err = optionalPath(c.Credit, ns); err != nil {
		return nil, fmt.Errorf("media.credit: %w", err)
	}
	if s.Description, err = optionalPath(c.Description, ns); err != nil {
		return nil, fmt.Errorf("media.description: %w", err)
	}
	return s, nil
}

func (c EmbeddedConfig) compile(ns map[string]string) (ImageStrategy, error) {
	expr := strings.TrimSpace(c.Content)
	if expr == "" {
		expr = "content:encoded"
	}
	content, err := feedtree.CompilePath(expr, ns)
	if err != nil {
		return nil, fmt.Errorf("embedded.content: %w", err)
	}

	var parser ImageParser
	switch strings.ToLower(strings.TrimSpace(c.Parser)) {
	case ParserRegex, "":
		parser = RegexImageParser{}
	case ParserHTML:
		parser = HTMLImageParser{}
	default:
		return nil, fmt.Errorf("embedded.parser %q not supported", c.Parser)
	}

	denylist := c.Denylist
	if denylist == nil {
		denylist = DefaultDenylist
	}
	return EmbeddedStrategy{Content: content, Parser: parser, Denylist: denylist}, nil
}

func optionalPath(expr string, ns map[string]string) (feedtree.Path, error) {
	if strings.TrimSpace(expr) == "" {
		return feedtree.Path{}, nil
	}
	return feedtree.CompilePath(expr, ns)
}

func mergeNamespaces(custom map[string]string) map[string]string {
	out := make(map[string]string, len(feedtree.DefaultNamespaces)+len(custom))
	for k, v := range feedtree.DefaultNamespaces {
		out[k] = v
	}
	for k, v := range custom {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
