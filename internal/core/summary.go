package core

import (
	"time"

	"presence.service/internal/core/model"
)

// Summarize aggregates a log into visit, hour and absence totals.
// The open entry, if any, is reported through OpenSince and does not add hours.
func Summarize(subjectID string, log model.Log) model.PresenceSummary {
	summary := model.PresenceSummary{SubjectID: subjectID}
	var worked time.Duration

	for _, e := range log {
		if e.IsAbsence() {
			summary.Absences++
			if summary.LastAbsence == nil || e.AbsenceDate.After(summary.LastAbsence.Time) {
				day := *e.AbsenceDate
				summary.LastAbsence = &day
			}
			continue
		}
		summary.Visits++
		if e.IsOpen() {
			since := *e.ArrivalTime
			summary.OpenSince = &since
			continue
		}
		summary.ClosedVisits++
		worked += e.DepartureTime.Sub(*e.ArrivalTime)
	}

	summary.WorkedHours = worked.Hours()
	return summary
}
