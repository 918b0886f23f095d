package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"presence.service/pkg/telemetry"
)

type Producer struct {
	sender            MessageSender
	timesheetQueueURL string
	emailQueueURL     string
}

func NewProducer(sender MessageSender, timesheetQueueURL, emailQueueURL string) *Producer {
	return &Producer{
		sender:            sender,
		timesheetQueueURL: timesheetQueueURL,
		emailQueueURL:     emailQueueURL,
	}
}

// NewSQSProducer creates a new Producer backed by an AWS SQS sender.
func NewSQSProducer(client SQSClient, timesheetQueueURL, emailQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, timesheetQueueURL, emailQueueURL)
}

func (p *Producer) PublishTimesheet(ctx context.Context, event TimesheetEvent) error {
	return p.publish(ctx, p.timesheetQueueURL, telemetry.Export{ID: event.ExportID, EmployeeID: event.EmployeeID}, event)
}

func (p *Producer) PublishEmail(ctx context.Context, event SummaryEmailEvent) error {
	return p.publish(ctx, p.emailQueueURL, telemetry.Export{ID: event.ExportID, EmployeeID: event.EmployeeID}, event)
}

func (p *Producer) publish(ctx context.Context, destination string, export telemetry.Export, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(export.Attributes()...)
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
