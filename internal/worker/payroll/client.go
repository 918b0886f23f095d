package payroll

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"presence.service/internal/ports/messaging"
)

// ErrRejected means the payroll system refused the timesheet; resending it will not help.
var ErrRejected = errors.New("payroll api rejected timesheet")

// Client contract for the payroll system.
type Client interface {
	RecordTimesheet(ctx context.Context, event messaging.TimesheetEvent) error
}

// HTTPClient talks to the payroll API over HTTP.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
	}
}

// IdempotencyHeader carries the export id; payroll answers a repeated id without recording it twice.
const IdempotencyHeader = "Idempotency-Key"

// RecordTimesheet posts the timesheet to the payroll API. 4xx answers wrap ErrRejected.
func (c *HTTPClient) RecordTimesheet(ctx context.Context, event messaging.TimesheetEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payroll payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create payroll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, event.ExportID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call payroll api: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("payroll api returned non-successful status code: %d", resp.StatusCode)
	}

	log.Ctx(ctx).Info().Str("employee_id", event.EmployeeID).Msg("Timesheet recorded in payroll system")
	return nil
}
