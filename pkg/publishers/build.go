package publishers

import (
	"context"
	"fmt"
)

// Builder creates the transport for one target.
type Builder func(ctx context.Context, t Target, log Logger) (Publisher, error)

// Builders maps target types to builders.
type Builders map[string]Builder

// DefaultBuilders covers the queue and http target types.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	}
}

// Build creates the publisher for t, wrapped by its route when one is set.
func (b Builders) Build(ctx context.Context, t Target, log Logger) (Publisher, error) {
	builder, ok := b[t.Type]
	if !ok || builder == nil {
		return nil, fmt.Errorf("publisher %q: no builder for type %q", t.ID, t.Type)
	}
	log = ensureLogger(log)

	pub, err := builder(ctx, t, log)
	if err != nil {
		return nil, err
	}
	if t.Route.IsZero() {
		return pub, nil
	}
	return &routedPublisher{Publisher: pub, route: t.Route, log: log}, nil
}

// BuildAll builds every target in order. On error the publishers built so far are closed.
func (b Builders) BuildAll(ctx context.Context, targets Targets, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	var pubs []Publisher
	for _, t := range targets {
		pub, err := b.Build(ctx, t, log)
		if err != nil {
			CloseAll(pubs, log)
			return nil, err
		}
		log.InfoObj("publisher ready", "publisher_ready", map[string]any{
			"publisher_id": pub.ID(),
			"type":         pub.Type(),
			"routed":       !t.Route.IsZero(),
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// Open loads the publishers file and builds its enabled targets with the default builders.
func Open(ctx context.Context, path string, log Logger) ([]Publisher, error) {
	targets, err := LoadTargets(path)
	if err != nil {
		return nil, err
	}
	return DefaultBuilders().BuildAll(ctx, targets.Enabled(), log)
}

// CloseAll releases publisher resources, logging failures.
func CloseAll(pubs []Publisher, log Logger) {
	log = ensureLogger(log)
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			log.WarnObj("publisher close failed", "publisher_close_error", map[string]any{
				"publisher_id": p.ID(),
				"error":        err.Error(),
			})
		}
	}
}
