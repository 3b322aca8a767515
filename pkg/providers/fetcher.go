package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-feed-harvester/pkg/httpclient"
)

const (
	// DefaultTimeout bounds one feed request.
	DefaultTimeout = 15 * time.Second
	// MaxBodyBytes caps accepted feed payloads; resty stops reading past it.
	MaxBodyBytes = 8 << 20
)

// FeedFetcher retrieves feeds over HTTP. Providers with insecure_tls use a separate client
// that skips certificate verification; everyone else goes through the verifying one.
type FeedFetcher struct {
	client   HTTPClient
	insecure HTTPClient
}

// NewFeedFetcher builds a fetcher from a verifying and an insecure client.
func NewFeedFetcher(client, insecure HTTPClient) *FeedFetcher {
	if client == nil {
		client = DefaultHTTPClient(DefaultTimeout)
	}
	if insecure == nil {
		insecure = InsecureHTTPClient(DefaultTimeout)
	}
	return &FeedFetcher{client: client, insecure: insecure}
}

// DefaultHTTPClient returns a tuned client for provider fetches.
func DefaultHTTPClient(timeout time.Duration) HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpclient.NewRestyClient(timeout, httpclient.WithBodyLimit(MaxBodyBytes))
}

// InsecureHTTPClient returns a client that accepts any server certificate.
func InsecureHTTPClient(timeout time.Duration) HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpclient.NewRestyClient(timeout, httpclient.WithInsecureTLS(), httpclient.WithBodyLimit(MaxBodyBytes))
}

// Fetch performs one GET for src. Non-2xx responses, timeouts and oversized bodies
// all come back as *TransportError.
func (f *FeedFetcher) Fetch(ctx context.Context, src FeedSource) ([]byte, error) {
	if src.URL == "" {
		return nil, &TransportError{Reason: ReasonConnection, Err: fmt.Errorf("%s/%s has no feed url", src.Provider, src.Section)}
	}

	client := f.client
	if src.Transport.InsecureTLS {
		client = f.insecure
	}

	resp, err := client.Get(ctx, src.URL, src.Transport.Headers)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, &TransportError{URL: src.URL, Reason: ReasonConnection, Err: fmt.Errorf("response body exceeds limit: %w", err)}
	}
	if err != nil {
		return nil, &TransportError{URL: src.URL, Reason: classifyError(err), Err: err}
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &TransportError{
			URL:        src.URL,
			Reason:     ReasonHTTPStatus,
			StatusCode: code,
			Snippet:    responseSnippet(body),
		}
	}
	return body, nil
}
