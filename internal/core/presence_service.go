package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"presence.service/internal/core/model"
	"presence.service/internal/ports/messaging"
	"presence.service/internal/ports/repository"
	"presence.service/pkg/logger"
	"presence.service/pkg/metrics"
)

// ErrPublish marks a failure to hand an export event to the queue.
var ErrPublish = errors.New("failed to publish export event")

type PresenceService struct {
	repo      repository.Repository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option customizes a PresenceService.
type Option func(*PresenceService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *PresenceService) { s.now = now }
}

// NewPresenceService creates the application service, wiring up the subject repository,
// the export publisher and the metrics. publisher and m may be nil.
func NewPresenceService(repo repository.Repository, publisher messaging.Publisher, m *metrics.Metrics, opts ...Option) *PresenceService {
	s := &PresenceService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyAction loads the subject, runs the state machine against its log and persists
// subject and log together. Nothing is written when the transition is rejected.
func (s *PresenceService) ApplyAction(ctx context.Context, category model.Category, id string, action Action) (*model.Subject, error) {
	if err := checkID(category, id); err != nil {
		return nil, err
	}
	ctx = logger.WithSubject(ctx, string(category), id)
	now := s.now()

	updated, err := s.repo.Mutate(ctx, category, id, func(subject *model.Subject) error {
		next, err := Apply(subject.Logs, subject.Category, action, now)
		if err != nil {
			return err
		}
		subject.Logs = next
		return nil
	})
	if err != nil {
		s.metrics.ActionRejected(string(category), action.Name(), string(model.KindOf(err)))
		log.Ctx(ctx).Warn().Err(err).Str("action", action.Name()).Msg("Attendance action rejected")
		return nil, err
	}

	s.metrics.ActionApplied(string(category), action.Name())
	log.Ctx(ctx).Info().
		Str("action", action.Name()).
		Str("state", string(StateOf(updated.Logs))).
		Int64("version", updated.Version).
		Msg("Attendance action applied")
	return updated, nil
}

// List returns all subjects of a category with their full logs.
func (s *PresenceService) List(ctx context.Context, category model.Category) ([]model.Subject, error) {
	if !category.Valid() {
		return nil, model.Validation(fmt.Sprintf("unknown category %q", category))
	}
	return s.repo.List(ctx, category)
}

// Get returns one subject.
func (s *PresenceService) Get(ctx context.Context, category model.Category, id string) (*model.Subject, error) {
	if err := checkID(category, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, category, id)
}

// Create registers a new subject with an empty log.
func (s *PresenceService) Create(ctx context.Context, category model.Category, attrs model.Attributes) (*model.Subject, error) {
	if err := attrs.Validate(category); err != nil {
		return nil, err
	}

	subject := &model.Subject{
		ID:         uuid.NewString(),
		Category:   category,
		Attributes: attrs.Clone(),
		Logs:       model.Log{},
		// Postgres keeps microseconds.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		Version:   1,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, err
	}

	s.metrics.SubjectCreated(string(category))
	log.Ctx(ctx).Info().Str("category", string(category)).Str("subject_id", subject.ID).Msg("Subject registered")
	return subject, nil
}

// Delete removes a subject together with its log.
func (s *PresenceService) Delete(ctx context.Context, category model.Category, id string) error {
	if err := checkID(category, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, category, id); err != nil {
		return err
	}

	s.metrics.SubjectDeleted(string(category))
	log.Ctx(logger.WithSubject(ctx, string(category), id)).Info().Msg("Subject deleted")
	return nil
}

// UpdateAttributes merges updates into an employee's static attributes. The log is left as is.
func (s *PresenceService) UpdateAttributes(ctx context.Context, category model.Category, id string, updates model.Attributes) (*model.Subject, error) {
	if err := checkID(category, id); err != nil {
		return nil, err
	}
	if category != model.CategoryEmployee {
		return nil, model.InvalidTransition("attribute updates are only available for employees")
	}
	if len(updates) == 0 {
		return nil, model.Validation("no updates supplied")
	}

	return s.repo.Mutate(ctx, category, id, func(subject *model.Subject) error {
		merged := subject.Attributes.Clone()
		for k, v := range updates {
			merged[k] = v
		}
		if err := merged.Validate(subject.Category); err != nil {
			return err
		}
		subject.Attributes = merged
		return nil
	})
}

// Summary aggregates a subject's log as of now.
func (s *PresenceService) Summary(ctx context.Context, category model.Category, id string) (model.PresenceSummary, error) {
	subject, err := s.Get(ctx, category, id)
	if err != nil {
		return model.PresenceSummary{}, err
	}
	return Summarize(subject.ID, subject.Logs), nil
}

// RequestTimesheet publishes an employee's summary to the timesheet and e-mail queues.
// It is an explicit operator request; attendance actions never publish anything.
// Both events carry an export id that stays the same while the subject is unchanged.
func (s *PresenceService) RequestTimesheet(ctx context.Context, id string) error {
	subject, err := s.Get(ctx, model.CategoryEmployee, id)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return fmt.Errorf("%w: no publisher configured", ErrPublish)
	}

	summary := Summarize(subject.ID, subject.Logs)
	exportID := messaging.ExportID(subject.ID, subject.Version)
	now := s.now().UTC()
	name := subject.Attributes["name"]
	ctx = logger.With(ctx, "export_id", exportID)

	err = s.publisher.PublishTimesheet(ctx, messaging.TimesheetEvent{
		ExportID:     exportID,
		EmployeeID:   subject.ID,
		Name:         name,
		Visits:       summary.Visits,
		ClosedVisits: summary.ClosedVisits,
		WorkedHours:  summary.WorkedHours,
		Absences:     summary.Absences,
		GeneratedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("%w: timesheet: %v", ErrPublish, err)
	}

	err = s.publisher.PublishEmail(ctx, messaging.SummaryEmailEvent{
		ExportID:    exportID,
		EmployeeID:  subject.ID,
		Name:        name,
		Email:       subject.Attributes["email"],
		WorkedHours: summary.WorkedHours,
		Absences:    summary.Absences,
		OccurredAt:  now,
	})
	if err != nil {
		// The timesheet is already queued; a retry re-sends it under the same export id.
		log.Ctx(ctx).Warn().Err(err).Msg("Timesheet queued but summary e-mail publish failed")
		return fmt.Errorf("%w: email: %v", ErrPublish, err)
	}

	log.Ctx(ctx).Info().Str("subject_id", subject.ID).Float64("worked_hours", summary.WorkedHours).Msg("Timesheet export requested")
	return nil
}

// checkID rejects unknown categories and ids that cannot name any subject.
func checkID(category model.Category, id string) error {
	if !category.Valid() {
		return model.Validation(fmt.Sprintf("unknown category %q", category))
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	return nil
}
