package publishers

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-feed-harvester/pkg/httpclient"
)

// httpPublisher sends events as JSON to a webhook-style endpoint.
type httpPublisher struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, t Target, log Logger) (Publisher, error) {
	if t.HTTP == nil {
		return nil, fmt.Errorf("publisher %q: http block is required", t.ID)
	}
	timeout, err := t.HTTP.requestTimeout()
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", t.ID, err)
	}

	return &httpPublisher{
		id:      t.ID,
		url:     t.HTTP.URL,
		method:  t.HTTP.Method,
		headers: t.HTTP.Headers,
		client:  httpclient.NewResty(timeout),
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

// Publish treats any non-2xx response as a failed delivery.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.payload()
	if err != nil {
		return err
	}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if len(p.headers) > 0 {
		req.SetHeaders(p.headers)
	}

	resp, err := req.Execute(p.method, p.url)
	if err != nil {
		return fmt.Errorf("http publisher %s: %w", p.id, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		p.log.WarnObj("http publisher rejected event", "publisher_http_error", map[string]any{
			"publisher_id": p.id,
			"status":       code,
			"provider_id":  evt.ProviderID,
			"section":      evt.Section,
		})
		return fmt.Errorf("http publisher %s: status %d", p.id, code)
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.EventID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func (p *httpPublisher) Close() error { return nil }
