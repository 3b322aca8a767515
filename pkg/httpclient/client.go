package httpclient

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the minimal HTTP surface used by feed fetchers and publishers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
}

// Option tunes the underlying resty client.
type Option func(*resty.Client)

// WithInsecureTLS accepts any server certificate and skips hostname checks.
func WithInsecureTLS() Option {
	return func(c *resty.Client) {
		//nolint:gosec // opt-in per provider whose chain cannot be verified
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
}

// WithUserAgent sets a default User-Agent, overridable per request.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) {
		if ua != "" {
			c.SetHeader("User-Agent", ua)
		}
	}
}

// WithBodyLimit makes reads of larger response bodies fail with resty.ErrResponseBodyTooLarge
// instead of buffering them.
func WithBodyLimit(n int) Option {
	return func(c *resty.Client) {
		if n > 0 {
			c.SetResponseBodyLimit(n)
		}
	}
}

type restyClient struct {
	client *resty.Client
}

// NewResty builds the underlying resty client shared by fetchers and publishers.
// No retries are configured.
func NewResty(timeout time.Duration, opts ...Option) *resty.Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewRestyClient wraps NewResty behind the Client interface.
func NewRestyClient(timeout time.Duration, opts ...Option) Client {
	return &restyClient{client: NewResty(timeout, opts...)}
}

// Get performs a GET request. Non-2xx responses are returned without error.
func (r *restyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	return req.Get(url)
}
