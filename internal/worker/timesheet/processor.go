package timesheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"presence.service/internal/ports/messaging"
	"presence.service/internal/worker"
	"presence.service/internal/worker/payroll"
)

// Processor forwards timesheet events to the payroll API behind a circuit breaker.
type Processor struct {
	payroll payroll.Client
	cb      *gobreaker.CircuitBreaker
}

// NewProcessor creates a new processor for the timesheet queue.
func NewProcessor(client payroll.Client) *Processor {
	settings := gobreaker.Settings{
		Name:        "Payroll-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip once half of at least 10 requests failed.
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		// A rejected timesheet means the API is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, payroll.ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Processor{
		payroll: client,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// Process sends one timesheet. Payroll outages are retried with exponential backoff based on
// the delivery count; malformed or rejected timesheets are not.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}

	var event messaging.TimesheetEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal timesheet event")
		return false, 0, err
	}
	if event.EmployeeID == "" || event.ExportID == "" {
		return false, 0, errors.New("timesheet event without employeeId or exportId")
	}

	log.Ctx(ctx).Info().
		Str("employee_id", event.EmployeeID).
		Str("export_id", event.ExportID).
		Float64("worked_hours", event.WorkedHours).
		Int("absences", event.Absences).
		Msg("Processing timesheet")

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.payroll.RecordTimesheet(ctx, event)
	})
	if err == nil {
		return false, 0, nil
	}

	if errors.Is(err, payroll.ErrRejected) {
		return false, 0, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Ctx(ctx).Warn().Msg("Circuit breaker is open; skipping payroll API call")
	}
	attempt := worker.ReceiveCount(msg)
	return true, worker.Backoff(attempt), fmt.Errorf("attempt %d: %w", attempt, err)
}
