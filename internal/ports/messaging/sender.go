package messaging

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"presence.service/pkg/telemetry"
)

var ErrQueueNotConfigured = errors.New("queue url not configured")

// SQSSender implements MessageSender for AWS SQS.
type SQSSender struct {
	client SQSClient
}

func (s *SQSSender) SendMessage(ctx context.Context, destination string, body []byte) error {
	if destination == "" {
		return ErrQueueNotConfigured
	}

	// Trace context travels in the message attributes so workers continue the same trace.
	attributes := telemetry.MessageAttributes(ctx)

	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(destination),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes,
	})
	return err
}
