package publishers

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Route narrows the events a target receives. Empty lists match everything.
type Route struct {
	Statuses  []string `json:"statuses" yaml:"statuses"`
	Providers []string `json:"providers" yaml:"providers"`
	Sections  []string `json:"sections" yaml:"sections"`
}

func (r *Route) normalize() {
	r.Statuses = lowerAll(r.Statuses)
	r.Providers = lowerAll(r.Providers)
	r.Sections = lowerAll(r.Sections)
}

func (r Route) validate() error {
	for _, s := range r.Statuses {
		if s != StatusSuccess && s != StatusFailure {
			return fmt.Errorf("route status %q must be %s or %s", s, StatusSuccess, StatusFailure)
		}
	}
	return nil
}

// IsZero reports whether the route lets every event through.
func (r Route) IsZero() bool {
	return len(r.Statuses) == 0 && len(r.Providers) == 0 && len(r.Sections) == 0
}

// Match compares provider and section case-insensitively.
func (r Route) Match(evt Event) bool {
	return matches(r.Statuses, evt.Status) &&
		matches(r.Providers, evt.ProviderID) &&
		matches(r.Sections, evt.Section)
}

func matches(allowed []string, v string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, strings.ToLower(v))
}

func lowerAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// routedPublisher drops events its route does not match before they reach the transport.
type routedPublisher struct {
	Publisher
	route Route
	log   Logger
}

func (p *routedPublisher) Publish(ctx context.Context, evt Event) error {
	if !p.route.Match(evt) {
		p.log.DebugObj("event outside publisher route", "publisher_route_skip", map[string]any{
			"publisher_id": p.ID(),
			"provider_id":  evt.ProviderID,
			"section":      evt.Section,
			"status":       evt.Status,
		})
		return nil
	}
	return p.Publisher.Publish(ctx, evt)
}
