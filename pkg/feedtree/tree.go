package feedtree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// Node is one element of a parsed feed. Space holds the resolved namespace URI.
type Node struct {
	Space    string
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Document is a parsed feed.
type Document struct {
	Root *Node
}

// ParseErrorKind classifies why a payload could not be turned into a tree.
type ParseErrorKind string

const (
	KindEmpty       ParseErrorKind = "empty"
	KindUnsupported ParseErrorKind = "unsupported"
	KindMalformed   ParseErrorKind = "malformed"
)

// ParseError reports malformed or non-feed content, as opposed to transport failures.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse feed: %s document", e.Kind)
	}
	return fmt.Sprintf("parse feed: %s document: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser builds element trees. Lenient tolerates unknown entities and mismatched end tags.
type Parser struct {
	Lenient bool
}

// Parse builds a tree with a strict parser.
func Parse(raw []byte) (*Document, error) {
	return Parser{}.Parse(raw)
}

// Parse turns raw feed bytes into a Document.
func (p Parser) Parse(raw []byte) (*Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Kind: KindEmpty}
	}

	switch typ := gofeed.DetectFeedType(bytes.NewReader(raw)); typ {
	case gofeed.FeedTypeRSS:
	case gofeed.FeedTypeUnknown:
		return nil, &ParseError{Kind: KindUnsupported, Err: errors.New("payload is not an RSS document")}
	default:
		return nil, &ParseError{Kind: KindUnsupported, Err: fmt.Errorf("feed type %v is not RSS", typ)}
	}

	root, err := buildTree(xpp.NewXMLPullParser(bytes.NewReader(raw), !p.Lenient, charset.NewReaderLabel))
	if err != nil {
		return nil, &ParseError{Kind: KindMalformed, Err: err}
	}
	return &Document{Root: root}, nil
}

func buildTree(p *xpp.XMLPullParser) (*Node, error) {
	var (
		root  *Node
		stack []*Node
	)
	for {
		event, err := p.Next()
		if err != nil {
			return nil, err
		}

		switch event {
		case xpp.StartTag:
			n := &Node{
				Space: p.Space,
				Name:  p.Name,
				Attrs: append([]xml.Attr(nil), p.Attrs...),
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xpp.Text:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += p.Text
			}
		case xpp.EndTag:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end tag %q", p.Name)
			}
			stack = stack[:len(stack)-1]
		case xpp.EndDocument:
			if root == nil {
				return nil, errors.New("document has no root element")
			}
			if len(stack) > 0 {
				return nil, fmt.Errorf("unexpected end of document inside <%s>", stack[len(stack)-1].Name)
			}
			return root, nil
		}
	}
}

// Find returns the first node matching p below n, or nil.
func (n *Node) Find(p Path) *Node {
	if found := p.eval(n, true); len(found) > 0 {
		return found[0]
	}
	return nil
}

// FindAll returns every node matching p below n in document order.
func (n *Node) FindAll(p Path) []*Node {
	return p.eval(n, false)
}

// Value returns the element's text with surrounding whitespace removed.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

// Lookup returns the trimmed text of the first match, false when absent or blank.
func (n *Node) Lookup(p Path) (string, bool) {
	v := n.Find(p).Value()
	return v, v != ""
}

// Attr returns an unqualified attribute value.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// walk visits descendants in document order until fn returns false.
func (n *Node) walk(fn func(*Node) bool) bool {
	for _, c := range n.Children {
		if !fn(c) {
			return false
		}
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
