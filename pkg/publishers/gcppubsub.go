package publishers

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gcpPubSubSender publishes to a Pub/Sub topic and waits for the server ack.
type gcpPubSubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newGCPPubSubSender(ctx context.Context, t *GCPTarget) (queueSender, error) {
	if t == nil {
		return nil, errors.New("gcp block is required")
	}

	var opts []option.ClientOption
	if t.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(t.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, t.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &gcpPubSubSender{client: client, topic: client.Topic(t.Topic)}, nil
}

func (s *gcpPubSubSender) Send(ctx context.Context, evt Event) (string, error) {
	payload, err := evt.payload()
	if err != nil {
		return "", err
	}

	res := s.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: evt.attributes()})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to pubsub topic: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client.
func (s *gcpPubSubSender) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
