package providers

import (
	"context"

	"github.com/samvad-hq/samvad-feed-harvester/pkg/httpclient"
)

// Fetcher retrieves the raw feed payload for one section.
// Implementations return *TransportError for every failure.
type Fetcher interface {
	Fetch(ctx context.Context, src FeedSource) ([]byte, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client
