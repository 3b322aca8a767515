package extract

import (
	"strings"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
)

// ImageStrategy recovers image descriptors from one item. Implementations never fail.
type ImageStrategy interface {
	Images(item *feedtree.Node) []domain.ImageDescriptor
}

// NoImages is used by profiles that do not extract images.
type NoImages struct{}

func (NoImages) Images(*feedtree.Node) []domain.ImageDescriptor { return []domain.ImageDescriptor{} }

// MediaStrategy reads dedicated media elements (media:content, media:thumbnail).
type MediaStrategy struct {
	Content   feedtree.Path
	Thumbnail feedtree.Path
	// Medium, when set, keeps only content elements whose medium attribute equals it.
	Medium string
	// Credit and Description are resolved relative to each content element.
	Credit      feedtree.Path
	Description feedtree.Path
	// Limit caps the number of descriptors; zero means no cap.
	Limit int
}

// Images returns content images first, then thumbnails, each in document order.
func (s MediaStrategy) Images(item *feedtree.Node) []domain.ImageDescriptor {
	images := []domain.ImageDescriptor{}

	for _, n := range item.FindAll(s.Content) {
		if s.Medium != "" {
			if medium, _ := n.Attr("medium"); medium != s.Medium {
				continue
			}
		}
		img, ok := mediaDescriptor(n, domain.ImageTypeContent)
		if !ok {
			continue
		}
		img.Credit = lookupPtr(n, s.Credit)
		img.Description = lookupPtr(n, s.Description)
		images = append(images, img)
	}

	for _, n := range item.FindAll(s.Thumbnail) {
		if img, ok := mediaDescriptor(n, domain.ImageTypeThumbnail); ok {
			images = append(images, img)
		}
	}

	if s.Limit > 0 && len(images) > s.Limit {
		images = images[:s.Limit]
	}
	return images
}

func mediaDescriptor(n *feedtree.Node, typ domain.ImageType) (domain.ImageDescriptor, bool) {
	url, ok := n.Attr("url")
	url = strings.TrimSpace(url)
	if !ok || url == "" {
		return domain.ImageDescriptor{}, false
	}
	return domain.ImageDescriptor{
		URL:    url,
		Width:  attrPtr(n, "width"),
		Height: attrPtr(n, "height"),
		Type:   typ,
	}, true
}

func attrPtr(n *feedtree.Node, name string) *string {
	v, ok := n.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

func lookupPtr(n *feedtree.Node, p feedtree.Path) *string {
	v, ok := n.Lookup(p)
	if !ok {
		return nil
	}
	return &v
}
