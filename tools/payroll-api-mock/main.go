package main

import (
	"encoding/json"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimesheetEvent mirrors the payload the timesheet worker posts.
type TimesheetEvent struct {
	ExportID     string    `json:"exportId"`
	EmployeeID   string    `json:"employeeId"`
	Name         string    `json:"name"`
	Visits       int       `json:"visits"`
	ClosedVisits int       `json:"closedVisits"`
	WorkedHours  float64   `json:"workedHours"`
	Absences     int       `json:"absences"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// payrollAPI records each export id once. Repeats are acknowledged without being recorded.
type payrollAPI struct {
	failureRate float64

	mu       sync.Mutex
	recorded map[string]TimesheetEvent
}

func newPayrollAPI(failureRate float64) *payrollAPI {
	return &payrollAPI{failureRate: failureRate, recorded: make(map[string]TimesheetEvent)}
}

func (p *payrollAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event TimesheetEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.EmployeeID == "" {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = event.ExportID
	}
	if key == "" {
		http.Error(w, "Missing Idempotency-Key", http.StatusBadRequest)
		return
	}

	if rand.Float64() < p.failureRate {
		log.Warn().Str("employee_id", event.EmployeeID).Msg("Simulating payroll outage")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	p.mu.Lock()
	_, seen := p.recorded[key]
	if !seen {
		p.recorded[key] = event
	}
	p.mu.Unlock()

	if seen {
		log.Info().Str("export_id", key).Msg("Duplicate timesheet ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().
		Str("export_id", key).
		Str("employee_id", event.EmployeeID).
		Float64("worked_hours", event.WorkedHours).
		Int("absences", event.Absences).
		Msg("Received timesheet")
	w.WriteHeader(http.StatusOK)
}

func (p *payrollAPI) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recorded)
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	failureRate := flag.Float64("failure-rate", 0, "fraction of requests answered with 503, to exercise the circuit breaker")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	http.Handle("/", newPayrollAPI(*failureRate))

	log.Info().Str("addr", *addr).Msg("Payroll API mock server starting")
	log.Fatal().Err(http.ListenAndServe(*addr, nil)).Msg("Payroll API mock stopped")
}
