package feedtree

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultNamespaces maps the prefixes used by provider profiles to namespace URIs.
var DefaultNamespaces = map[string]string{
	"media":   "http://search.yahoo.com/mrss/",
	"dc":      "http://purl.org/dc/elements/1.1/",
	"content": "http://purl.org/rss/1.0/modules/content/",
	"atom":    "http://www.w3.org/2005/Atom",
}

// Path is a compiled element path: a subset of ElementTree's syntax.
//
//	title                 direct child
//	channel/item          nested children
//	.//media:content      any descendant, prefix resolved through a namespace map
//	{http://uri}creator   Clark notation
//	*                     any element
type Path struct {
	raw   string
	steps []step
}

type step struct {
	descendant bool
	self       bool
	any        bool
	space      string
	local      string
}

// CompilePath parses expr, resolving prefixes through ns (DefaultNamespaces when nil).
func CompilePath(expr string, ns map[string]string) (Path, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Path{}, errors.New("path is empty")
	}
	if ns == nil {
		ns = DefaultNamespaces
	}

	rest := raw
	descendant := false
	switch {
	case strings.HasPrefix(rest, ".//"):
		descendant = true
		rest = rest[3:]
	case strings.HasPrefix(rest, "./"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "/"):
		return Path{}, fmt.Errorf("path %q: absolute paths are not supported", raw)
	}

	p := Path{raw: raw}
	for {
		tok, remaining, err := splitStep(rest)
		if err != nil {
			return Path{}, fmt.Errorf("path %q: %w", raw, err)
		}
		st, err := compileStep(tok, ns)
		if err != nil {
			return Path{}, fmt.Errorf("path %q: %w", raw, err)
		}
		st.descendant = descendant
		p.steps = append(p.steps, st)

		if remaining == "" {
			break
		}
		rest = remaining[1:]
		descendant = false
		if strings.HasPrefix(rest, "/") {
			descendant = true
			rest = rest[1:]
		}
		if rest == "" {
			return Path{}, fmt.Errorf("path %q: trailing separator", raw)
		}
	}
	return p, nil
}

// MustCompilePath is CompilePath for static expressions; it panics on error.
func MustCompilePath(expr string) Path {
	p, err := CompilePath(expr, nil)
	if err != nil {
		panic(err)
	}
	return p
}

// IsZero reports whether the path was never compiled (field not configured).
func (p Path) IsZero() bool { return len(p.steps) == 0 }

func (p Path) String() string { return p.raw }

// splitStep returns the first step and the remainder, which is empty or starts with '/'.
func splitStep(s string) (string, string, error) {
	i := 0
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", "", errors.New("unterminated namespace URI")
		}
		i = end + 1
	}
	j := strings.IndexByte(s[i:], '/')
	if j < 0 {
		return s, "", nil
	}
	return s[:i+j], s[i+j:], nil
}

func compileStep(tok string, ns map[string]string) (step, error) {
	switch tok {
	case "":
		return step{}, errors.New("empty step")
	case ".":
		return step{self: true}, nil
	case "*":
		return step{any: true}, nil
	}

	if strings.HasPrefix(tok, "{") {
		end := strings.IndexByte(tok, '}')
		local := tok[end+1:]
		if local == "" {
			return step{}, fmt.Errorf("step %q has no local name", tok)
		}
		return step{space: tok[1:end], local: local}, nil
	}

	if prefix, local, ok := strings.Cut(tok, ":"); ok {
		uri, found := ns[prefix]
		if !found {
			return step{}, fmt.Errorf("unknown namespace prefix %q", prefix)
		}
		if local == "" {
			return step{}, fmt.Errorf("step %q has no local name", tok)
		}
		return step{space: uri, local: local}, nil
	}

	return step{local: tok}, nil
}

func (s step) matches(n *Node) bool {
	if s.any {
		return true
	}
	return n.Name == s.local && n.Space == s.space
}

func (p Path) eval(from *Node, firstOnly bool) []*Node {
	if from == nil || p.IsZero() {
		return nil
	}
	cur := []*Node{from}
	for i, st := range p.steps {
		last := i == len(p.steps)-1
		var next []*Node
		for _, n := range cur {
			switch {
			case st.self:
				next = append(next, n)
			case st.descendant:
				n.walk(func(d *Node) bool {
					if st.matches(d) {
						next = append(next, d)
						if last && firstOnly {
							return false
						}
					}
					return true
				})
			default:
				for _, c := range n.Children {
					if st.matches(c) {
						next = append(next, c)
					}
				}
			}
			if last && firstOnly && len(next) > 0 {
				return next[:1]
			}
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}
