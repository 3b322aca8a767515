package publishers

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/internal/logger"
)

// Event statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Logger is the logging surface publishers write to.
type Logger = logger.Logger

// Publisher forwards ingest events downstream.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Event is the downstream notification for one appended batch.
type Event struct {
	EventID      string           `json:"event_id"`
	ProviderID   string           `json:"provider_id"`
	Section      string           `json:"section"`
	Date         string           `json:"date"`
	Status       string           `json:"status"`
	ArticleCount int              `json:"article_count"`
	Articles     []domain.Article `json:"articles,omitempty"`
	Error        string           `json:"error,omitempty"`
	EmittedAt    time.Time        `json:"emitted_at"`
}

// NewEvent builds the event for a batch that has been durably stored.
func NewEvent(batch domain.IngestBatch, now time.Time) Event {
	evt := Event{
		ProviderID:   batch.Provider,
		Section:      batch.Section,
		Date:         batch.Date,
		Status:       StatusSuccess,
		ArticleCount: len(batch.Articles),
		Articles:     batch.Articles,
		Error:        batch.Error,
		EmittedAt:    now.UTC(),
	}
	if batch.Failed() {
		evt.Status = StatusFailure
	}
	evt.EventID = eventID(evt)
	return evt
}

// attributes are attached to queue messages so subscribers can filter without decoding.
// Empty values are left out.
func (e Event) attributes() map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{
		"provider_id": e.ProviderID,
		"section":     e.Section,
		"status":      e.Status,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// payload encodes the event with article markup left unescaped, as in the output files.
func (e Event) payload() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func eventID(e Event) string {
	sum := sha1.Sum([]byte(e.ProviderID + "|" + e.Section + "|" + e.Date + "|" + e.EmittedAt.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
