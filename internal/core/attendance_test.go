package core

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"presence.service/internal/core/model"
)

type AttendanceSuite struct {
	suite.Suite
	t0 time.Time
}

func TestAttendanceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceSuite))
}

func (s *AttendanceSuite) SetupTest() {
	s.t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
}

func (s *AttendanceSuite) apply(log model.Log, category model.Category, action Action, at time.Time) model.Log {
	next, err := Apply(log, category, action, at)
	s.Require().NoError(err)
	return next
}

func (s *AttendanceSuite) TestArriveThenLeave() {
	log := s.apply(model.Log{}, model.CategoryVisitor, Arrive{}, s.t0)
	s.Require().Len(log, 1)
	s.True(log[0].ArrivalTime.Equal(s.t0))
	s.Nil(log[0].DepartureTime)
	s.Equal(StatePresent, StateOf(log))
	s.Equal(model.Availability{LeaveAllowed: true}, Availability(log, model.CategoryVisitor))

	log = s.apply(log, model.CategoryVisitor, Leave{}, s.t0.Add(8*time.Hour))
	s.Require().Len(log, 1)
	s.True(log[0].DepartureTime.Equal(s.t0.Add(8 * time.Hour)))
	s.Equal(StateAbsent, StateOf(log))
	s.Equal(model.Availability{ArriveAllowed: true}, Availability(log, model.CategoryVisitor))
}

func (s *AttendanceSuite) TestDoubleArriveRejected() {
	log := s.apply(model.Log{}, model.CategoryEmployee, Arrive{}, s.t0)

	next, err := Apply(log, model.CategoryEmployee, Arrive{}, s.t0.Add(time.Minute))
	s.Require().ErrorIs(err, model.ErrInvalidTransition)
	s.Equal(log, next)
	s.Len(log, 1)
}

func (s *AttendanceSuite) TestLeaveWithoutOpenEntryRejected() {
	_, err := Apply(model.Log{}, model.CategoryEmployee, Leave{}, s.t0)
	s.ErrorIs(err, model.ErrInvalidTransition)

	log := s.apply(model.Log{}, model.CategoryEmployee, Arrive{}, s.t0)
	log = s.apply(log, model.CategoryEmployee, Leave{}, s.t0.Add(time.Hour))
	_, err = Apply(log, model.CategoryEmployee, Leave{}, s.t0.Add(2*time.Hour))
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *AttendanceSuite) TestLeaveNeverPrecedesArrival() {
	log := s.apply(model.Log{}, model.CategoryVisitor, Arrive{}, s.t0)
	log = s.apply(log, model.CategoryVisitor, Leave{}, s.t0.Add(-time.Minute))
	s.True(log[0].DepartureTime.Equal(s.t0))
	s.NoError(log.CheckInvariant())
}

func (s *AttendanceSuite) TestApplyDoesNotMutateInput() {
	open := s.apply(model.Log{}, model.CategoryEmployee, Arrive{}, s.t0)
	closed := s.apply(open, model.CategoryEmployee, Leave{}, s.t0.Add(time.Hour))
	s.Nil(open[0].DepartureTime)
	s.NotNil(closed[0].DepartureTime)
}

func (s *AttendanceSuite) TestMarkAbsentEmployeesOnly() {
	log := s.apply(model.Log{}, model.CategoryEmployee, MarkAbsent{}, s.t0.Add(3*time.Hour))
	s.Require().Len(log, 1)
	s.True(log[0].IsAbsence())
	s.Equal("2026-10-19", log[0].AbsenceDate.String())

	for _, c := range []model.Category{model.CategoryVisitor, model.CategoryServiceProvider} {
		_, err := Apply(model.Log{}, c, MarkAbsent{}, s.t0)
		s.ErrorIs(err, model.ErrInvalidTransition, c)
		s.False(Availability(model.Log{}, c).MarkAbsentAllowed)
	}
}

func (s *AttendanceSuite) TestMarkAbsentKeepsAvailability() {
	open := s.apply(model.Log{}, model.CategoryEmployee, Arrive{}, s.t0)
	before := Availability(open, model.CategoryEmployee)

	marked := s.apply(open, model.CategoryEmployee, MarkAbsent{}, s.t0.Add(time.Hour))
	s.Equal(before, Availability(marked, model.CategoryEmployee))
	s.Equal(StatePresent, StateOf(marked))

	// The open entry can still be closed across the absence marker.
	closed := s.apply(marked, model.CategoryEmployee, Leave{}, s.t0.Add(2*time.Hour))
	s.NotNil(closed[0].DepartureTime)
	s.True(closed[1].IsAbsence())
	s.NoError(closed.CheckInvariant())
}

func (s *AttendanceSuite) TestParseAction() {
	for name, want := range map[string]Action{"entrada": Arrive{}, "saida": Leave{}, "faltou": MarkAbsent{}} {
		got, err := ParseAction(name)
		s.Require().NoError(err)
		s.Equal(want, got)
		s.Equal(name, got.Name())
	}

	_, err := ParseAction("teleport")
	s.ErrorIs(err, model.ErrValidation)
}

// Random action sequences must keep the log invariant and only ever grow by at most one entry.
func TestRandomSequencesPreserveInvariant(t *testing.T) {
	actions := []Action{Arrive{}, Leave{}, MarkAbsent{}}
	categories := []model.Category{model.CategoryEmployee, model.CategoryVisitor, model.CategoryServiceProvider}
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 200; run++ {
		category := categories[run%len(categories)]
		log := model.Log{}
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		for step := 0; step < 50; step++ {
			now = now.Add(time.Duration(rng.IntN(600)) * time.Minute)
			action := actions[rng.IntN(len(actions))]
			avail := Availability(log, category)

			next, err := Apply(log, category, action, now)
			require.NoError(t, next.CheckInvariant())

			allowed := map[string]bool{
				ActionArrive:     avail.ArriveAllowed,
				ActionLeave:      avail.LeaveAllowed,
				ActionMarkAbsent: avail.MarkAbsentAllowed,
			}[action.Name()]
			if allowed {
				require.NoError(t, err, "run %d step %d %s", run, step, action.Name())
			} else {
				require.ErrorIs(t, err, model.ErrInvalidTransition)
				assert.Equal(t, log, next)
			}

			assert.LessOrEqual(t, len(next)-len(log), 1)
			assert.False(t, avail.ArriveAllowed && avail.LeaveAllowed)
			log = next
		}
	}
}
