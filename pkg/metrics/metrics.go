package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActionsApplied  *prometheus.CounterVec
	ActionsRejected *prometheus.CounterVec
	SubjectsCreated *prometheus.CounterVec
	SubjectsDeleted *prometheus.CounterVec
}

// New registers the presence counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActionsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_actions_applied_total",
			Help: "Attendance actions accepted and persisted",
		}, []string{"category", "action"}),
		ActionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_actions_rejected_total",
			Help: "Attendance actions rejected, by error kind",
		}, []string{"category", "action", "kind"}),
		SubjectsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_subjects_created_total",
			Help: "Subjects registered",
		}, []string{"category"}),
		SubjectsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_subjects_deleted_total",
			Help: "Subjects deleted together with their log",
		}, []string{"category"}),
	}
}

func (m *Metrics) ActionApplied(category, action string) {
	if m == nil {
		return
	}
	m.ActionsApplied.WithLabelValues(category, action).Inc()
}

func (m *Metrics) ActionRejected(category, action, kind string) {
	if m == nil {
		return
	}
	m.ActionsRejected.WithLabelValues(category, action, kind).Inc()
}

func (m *Metrics) SubjectCreated(category string) {
	if m == nil {
		return
	}
	m.SubjectsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) SubjectDeleted(category string) {
	if m == nil {
		return
	}
	m.SubjectsDeleted.WithLabelValues(category).Inc()
}
