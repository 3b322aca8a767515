package sink

import (
	"context"
	"errors"
	"time"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/internal/logger"
	"github.com/samvad-hq/samvad-feed-harvester/internal/metrics"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/publishers"
)

// PublishingSink appends to a durable sink and then notifies publishers.
// Only the durable append can fail the call; publisher errors are logged and counted.
type PublishingSink struct {
	next    Sink
	pubs    []publishers.Publisher
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPublishingSink wraps next. With no publishers it is a plain pass-through.
func NewPublishingSink(next Sink, pubs []publishers.Publisher, log logger.Logger, m *metrics.Metrics) *PublishingSink {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &PublishingSink{next: next, pubs: pubs, log: log, metrics: m, now: time.Now}
}

func (s *PublishingSink) Append(ctx context.Context, batch domain.IngestBatch) error {
	if err := s.next.Append(ctx, batch); err != nil {
		return err
	}
	if len(s.pubs) == 0 {
		return nil
	}

	evt := publishers.NewEvent(batch, s.now())
	for _, p := range s.pubs {
		if err := p.Publish(ctx, evt); err != nil {
			s.metrics.RecordPublisherError(p.ID())
			s.log.WarnObj("publish ingest event failed", "publish_error", map[string]any{
				"publisher_id": p.ID(),
				"provider_id":  batch.Provider,
				"section":      batch.Section,
				"error":        err.Error(),
			})
		}
	}
	return nil
}

// Close closes the publishers and the wrapped sink.
func (s *PublishingSink) Close() error {
	var errs []error
	for _, p := range s.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.next.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
