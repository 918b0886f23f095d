package messaging

import (
	"fmt"
	"time"
)

// ExportID names one export of a subject's log. It only changes when the subject does,
// so re-requesting an unchanged timesheet produces the same id.
func ExportID(subjectID string, version int64) string {
	return fmt.Sprintf("%s-v%d", subjectID, version)
}

// TimesheetEvent is published on the timesheet queue and forwarded to payroll.
// ExportID is sent as the idempotency key.
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

// SummaryEmailEvent is published on the e-mail queue.
type SummaryEmailEvent struct {
	ExportID    string    `json:"exportId"`
	EmployeeID  string    `json:"employeeId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	WorkedHours float64   `json:"workedHours"`
	Absences    int       `json:"absences"`
	OccurredAt  time.Time `json:"occurredAt"`
}
