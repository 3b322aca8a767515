package publishers

import (
	"context"
	"fmt"
)

// queueSender delivers one encoded event and returns the broker's message id.
type queueSender interface {
	Send(ctx context.Context, evt Event) (string, error)
	Close() error
}

type senderFactory func(ctx context.Context, q *QueueTarget) (queueSender, error)

var queueSenders = map[string]senderFactory{
	QueueProviderAWSSQS: func(ctx context.Context, q *QueueTarget) (queueSender, error) {
		return newAWSSQSSender(ctx, q.SQS)
	},
	QueueProviderAWSSNS: func(ctx context.Context, q *QueueTarget) (queueSender, error) {
		return newAWSSNSSender(ctx, q.SNS)
	},
	QueueProviderGCP: func(ctx context.Context, q *QueueTarget) (queueSender, error) {
		return newGCPPubSubSender(ctx, q.GCP)
	},
}

// queuePublisher sends ingest events to a cloud queue or topic.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, t Target, log Logger) (Publisher, error) {
	if t.Queue == nil {
		return nil, fmt.Errorf("publisher %q: queue block is required", t.ID)
	}
	factory, ok := queueSenders[t.Queue.Provider]
	if !ok {
		return nil, fmt.Errorf("publisher %q: queue provider %q not supported", t.ID, t.Queue.Provider)
	}

	sender, err := factory(ctx, t.Queue)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", t.ID, err)
	}
	return &queuePublisher{
		id:       t.ID,
		provider: t.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(log),
	}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	msgID, err := p.sender.Send(ctx, evt)
	if err != nil {
		p.log.ErrorObj("queue publisher send failed", "publisher_queue_error", map[string]any{
			"publisher_id":   p.id,
			"queue_provider": p.provider,
			"provider_id":    evt.ProviderID,
			"section":        evt.Section,
			"error":          err.Error(),
		})
		return fmt.Errorf("%s send: %w", p.provider, err)
	}

	p.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id":   p.id,
		"queue_provider": p.provider,
		"event_id":       evt.EventID,
		"message_id":     msgID,
		"provider_id":    evt.ProviderID,
		"section":        evt.Section,
		"status":         evt.Status,
	})
	return nil
}

func (p *queuePublisher) Close() error { return p.sender.Close() }
