package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"presence.service/internal/core"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/worker"
)

type EmailProcessor struct {
	emailService core.EmailService
}

// NewProcessor sets up a new processor for the summary e-mail queue.
func NewProcessor(emailService core.EmailService) *EmailProcessor {
	return &EmailProcessor{
		emailService: emailService,
	}
}

// Process sends one presence summary e-mail, asking for a delayed retry when SES fails.
func (p *EmailProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}

	var event messaging.SummaryEmailEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal email event")
		return false, 0, err
	}
	if event.Email == "" {
		return false, 0, fmt.Errorf("employee %s has no e-mail address", event.EmployeeID)
	}

	if err := p.emailService.SendPresenceSummary(ctx, event); err != nil {
		attempt := worker.ReceiveCount(msg)
		return true, worker.Backoff(attempt), fmt.Errorf("attempt %d: %w", attempt, err)
	}

	log.Ctx(ctx).Info().Str("employee_id", event.EmployeeID).Msg("Presence summary e-mail sent")
	return false, 0, nil
}
