package extract

import (
	"errors"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
)

var (
	// ErrNoChannel is returned when a channel-located profile meets a feed without a channel element.
	ErrNoChannel = errors.New("feed has no channel element")
	// ErrEmptyDocument is returned for a nil document or root.
	ErrEmptyDocument = errors.New("feed document is empty")
)

// Extract walks the items of doc in document order and normalizes them using p.
// Missing optional elements resolve to defaults; only a missing item container is an error.
func Extract(doc *feedtree.Document, p *Profile) ([]domain.Article, error) {
	if doc == nil || doc.Root == nil {
		return nil, ErrEmptyDocument
	}
	if p == nil {
		return nil, errors.New("extraction profile is nil")
	}

	items, err := p.itemNodes(doc.Root)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, p.article(item))
	}
	return articles, nil
}

func (p *Profile) itemNodes(root *feedtree.Node) ([]*feedtree.Node, error) {
	if p.location == LocationChannel {
		channel := root.Find(p.channel)
		if channel == nil {
			return nil, ErrNoChannel
		}
		return channel.FindAll(p.items), nil
	}
	return root.FindAll(p.items), nil
}

func (p *Profile) article(item *feedtree.Node) domain.Article {
	a := domain.Article{
		Title:          domain.DefaultTitle,
		Description:    domain.DefaultDescription,
		DescriptionKey: p.descriptionKey,
	}

	if v, ok := item.Lookup(p.title); ok {
		a.Title = v
	}
	if v, ok := item.Lookup(p.description); ok {
		a.Description = v
	}
	a.Link = optional(item, p.link)
	a.PubDate = optional(item, p.pubDate)
	a.Author = optional(item, p.author)
	a.GUID = optional(item, p.guid)
	a.Categories = categories(item, p.categories)

	a.Images = p.images.Images(item)
	if a.Images == nil {
		a.Images = []domain.ImageDescriptor{}
	}
	return a
}

func optional(item *feedtree.Node, path feedtree.Path) *string {
	v, ok := item.Lookup(path)
	if !ok {
		return nil
	}
	return &v
}

// categories keeps only entries carrying a domain attribute; bare tags are a different taxonomy.
func categories(item *feedtree.Node, path feedtree.Path) []domain.Category {
	if path.IsZero() {
		return nil
	}
	var out []domain.Category
	for _, n := range item.FindAll(path) {
		dom, ok := n.Attr("domain")
		if !ok {
			continue
		}
		out = append(out, domain.Category{Name: n.Value(), Domain: dom})
	}
	return out
}
