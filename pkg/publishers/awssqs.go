package publishers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// awsSQSSender enqueues one message per event. Bodies above the SQS size limit are
// rejected by the service and surface as send errors.
type awsSQSSender struct {
	queueURL string
	client   sqsClient
}

func newAWSSQSSender(ctx context.Context, t *SQSTarget) (queueSender, error) {
	if t == nil {
		return nil, errors.New("sqs block is required")
	}
	awsCfg, err := loadAWSConfig(ctx, t.AWSCredentials)
	if err != nil {
		return nil, err
	}
	return &awsSQSSender{queueURL: t.QueueURL, client: sqs.NewFromConfig(awsCfg)}, nil
}

func (s *awsSQSSender) Send(ctx context.Context, evt Event) (string, error) {
	payload, err := evt.payload()
	if err != nil {
		return "", err
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range evt.attributes() {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	resp, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("send to sqs queue: %w", err)
	}
	return aws.ToString(resp.MessageId), nil
}

func (s *awsSQSSender) Close() error { return nil }
