package providers

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-feed-harvester/pkg/cfgfile"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/extract"
)

const (
	// SectionPlaceholder is replaced by the section name in url_template.
	SectionPlaceholder = "{section}"

	defaultAccept = "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile represents the structure of a provider catalog file.
type catalogFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Provider is one news provider declared in the catalog.
type Provider struct {
	ID          string                `json:"id" yaml:"id"`
	Enabled     *bool                 `json:"enabled" yaml:"enabled"`
	URLTemplate string                `json:"url_template" yaml:"url_template"`
	Sections    []Section             `json:"sections" yaml:"sections"`
	Headers     map[string]string     `json:"headers" yaml:"headers"`
	UserAgent   string                `json:"user_agent" yaml:"user_agent"`
	InsecureTLS bool                  `json:"insecure_tls" yaml:"insecure_tls"`
	LenientXML  bool                  `json:"lenient_xml" yaml:"lenient_xml"`
	Delay       DelayRange            `json:"delay" yaml:"delay"`
	Profile     extract.ProfileConfig `json:"profile" yaml:"profile"`

	compiled *extract.Profile
}

// Section is a named feed of a provider. URL overrides the provider's url_template.
type Section struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// UnmarshalYAML accepts either a bare section name or a {name, url} mapping.
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		s.URL = ""
		return nil
	}
	type plain Section
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Section(p)
	return nil
}

// UnmarshalJSON accepts either a bare section name or a {name, url} object.
func (s *Section) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Section{Name: name}
		return nil
	}
	type plain Section
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Section(p)
	return nil
}

// DelayRange bounds the politeness delay between sections, in seconds.
type DelayRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Bounds returns the range as durations.
func (d DelayRange) Bounds() (time.Duration, time.Duration) {
	return seconds(d.Min), seconds(d.Max)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// TransportPolicy carries per-provider request settings.
type TransportPolicy struct {
	Headers     map[string]string
	InsecureTLS bool
}

// FeedSource is one fetchable section with everything needed to process it.
type FeedSource struct {
	Provider   string
	Section    string
	URL        string
	Transport  TransportPolicy
	LenientXML bool
	Profile    *extract.Profile
	Delay      DelayRange
}

// Catalog materializes provider definitions loaded from catalog files.
type Catalog struct {
	mu        sync.RWMutex
	providers []Provider
	idx       map[string]Provider
}

// DefaultCatalog returns the built-in provider catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(builtinCatalog, ".yaml")
}

// LoadCatalog loads a provider catalog from a YAML/JSON file. ${VAR} references are expanded.
func LoadCatalog(path string) (*Catalog, error) {
	data, ext, err := cfgfile.Read(path, "providers")
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data, ext)
}

// ParseCatalog decodes, sanitizes and validates catalog content. Profiles are compiled here
// so a bad path fails at startup rather than mid-run.
func ParseCatalog(data []byte, ext string) (*Catalog, error) {
	var file catalogFile
	if err := cfgfile.Decode(data, ext, "providers", &file); err != nil {
		return nil, err
	}
	if len(file.Providers) == 0 {
		return nil, fmt.Errorf("providers %w", cfgfile.ErrEmpty)
	}

	cat := &Catalog{
		providers: make([]Provider, len(file.Providers)),
		idx:       make(map[string]Provider, len(file.Providers)),
	}

	for i := range file.Providers {
		p := sanitizeProvider(file.Providers[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		key := strings.ToLower(p.ID)
		if _, exists := cat.idx[key]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}

		compiled, err := p.Profile.Compile()
		if err != nil {
			return nil, fmt.Errorf("provider %q profile: %w", p.ID, err)
		}
		p.compiled = compiled

		cat.providers[i] = p
		cat.idx[key] = p
	}

	return cat, nil
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.TrimSpace(p.ID)
	p.URLTemplate = strings.TrimSpace(p.URLTemplate)
	p.UserAgent = strings.TrimSpace(p.UserAgent)
	if p.Enabled == nil {
		def := true
		p.Enabled = &def
	}

	sections := make([]Section, 0, len(p.Sections))
	for _, s := range p.Sections {
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		sections = append(sections, s)
	}
	p.Sections = sections
	p.Headers = cfgfile.Headers(p.Headers)
	return p
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("sections are required for provider %q", p.ID)
	}

	seen := make(map[string]struct{}, len(p.Sections))
	for i, s := range p.Sections {
		if s.Name == "" {
			return fmt.Errorf("sections[%d].name is required for provider %q", i, p.ID)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate section %q for provider %q", s.Name, p.ID)
		}
		seen[s.Name] = struct{}{}

		if s.URL == "" && !strings.Contains(p.URLTemplate, SectionPlaceholder) {
			return fmt.Errorf("section %q of provider %q has no url and url_template lacks %s", s.Name, p.ID, SectionPlaceholder)
		}
	}

	if p.Delay.Min < 0 || p.Delay.Max < 0 {
		return fmt.Errorf("delay bounds must not be negative for provider %q", p.ID)
	}
	if p.Delay.Max < p.Delay.Min {
		return fmt.Errorf("delay.max %.2f is below delay.min %.2f for provider %q", p.Delay.Max, p.Delay.Min, p.ID)
	}
	return nil
}

// EnabledValue returns enabled flag defaulting to true.
func (p Provider) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// SectionURL resolves the feed URL of a section.
func (p Provider) SectionURL(s Section) string {
	if s.URL != "" {
		return s.URL
	}
	return strings.ReplaceAll(p.URLTemplate, SectionPlaceholder, s.Name)
}

// Sources expands the provider into its sections, in catalog order.
func (p Provider) Sources() []FeedSource {
	transport := TransportPolicy{Headers: Headers(p), InsecureTLS: p.InsecureTLS}

	out := make([]FeedSource, 0, len(p.Sections))
	for _, s := range p.Sections {
		out = append(out, FeedSource{
			Provider:   p.ID,
			Section:    s.Name,
			URL:        p.SectionURL(s),
			Transport:  transport,
			LenientXML: p.LenientXML,
			Profile:    p.compiled,
			Delay:      p.Delay,
		})
	}
	return out
}

// Headers builds the request headers for a provider.
func Headers(p Provider) map[string]string {
	headers := map[string]string{"Accept": defaultAccept}
	if p.UserAgent != "" {
		headers["User-Agent"] = p.UserAgent
	}
	for k, v := range p.Headers {
		headers[k] = v
	}
	return headers
}

// ByID returns the provider by id, case-insensitively.
func (c *Catalog) ByID(id string) (Provider, bool) {
	if c == nil {
		return Provider{}, false
	}

	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Provider{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.idx[id]
	return p, ok
}

// All returns all configured providers in catalog order.
func (c *Catalog) All() []Provider {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Enabled returns providers that are enabled.
func (c *Catalog) Enabled() []Provider {
	all := c.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.EnabledValue() {
			out = append(out, p)
		}
	}
	return out
}

// Select returns the enabled providers whose ids are listed, in catalog order.
// An empty list selects every enabled provider.
func (c *Catalog) Select(ids []string) ([]Provider, error) {
	enabled := c.Enabled()
	if len(ids) == 0 {
		return enabled, nil
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := c.ByID(id); !ok {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		want[id] = struct{}{}
	}

	out := make([]Provider, 0, len(want))
	for _, p := range enabled {
		if _, ok := want[strings.ToLower(p.ID)]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
