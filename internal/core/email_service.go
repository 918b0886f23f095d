package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence.service/internal/ports/messaging"
	"presence.service/pkg/telemetry"
)

type EmailService interface {
	SendPresenceSummary(ctx context.Context, event messaging.SummaryEmailEvent) error
}

// SESClient is the part of the SES API the e-mail service needs.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESEmailService struct {
	client SESClient
	sender string
}

func NewSESEmailService(client SESClient, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendPresenceSummary(ctx context.Context, event messaging.SummaryEmailEvent) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if export := telemetry.ExportFrom(ctx); export.ID != "" {
		span.SetAttributes(attribute.String("presence.export_id", export.ID))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Presence summary"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(SummaryEmailBody(event)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

// SummaryEmailBody renders the plain-text body of the presence summary e-mail.
func SummaryEmailBody(event messaging.SummaryEmailEvent) string {
	return fmt.Sprintf("Hello %s,\n\nTotal hours recorded: %.2f hours.\nDays marked absent: %d.\n",
		event.Name, event.WorkedHours, event.Absences)
}
