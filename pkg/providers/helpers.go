package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Transport failure reasons.
const (
	ReasonConnection = "connection"
	ReasonHTTPStatus = "http_status"
	ReasonTimeout    = "timeout"
)

// TransportError reports why a feed could not be retrieved.
type TransportError struct {
	URL        string
	Reason     string
	StatusCode int
	Snippet    string
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("fetch %s: status %d body: %s", e.URL, e.StatusCode, e.Snippet)
	default:
		if e.Err == nil {
			return fmt.Sprintf("fetch %s: %s failure", e.URL, e.Reason)
		}
		return fmt.Sprintf("fetch %s: %s failure: %v", e.URL, e.Reason, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// classifyError maps a client error to a transport reason.
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonConnection
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
