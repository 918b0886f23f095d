package core

import (
	"time"

	"presence.service/internal/core/model"
)

// State is the attendance state of a subject, derived from its log.
type State string

const (
	StateAbsent  State = "ABSENT_NO_OPEN_ENTRY"
	StatePresent State = "PRESENT_OPEN_ENTRY"
)

// Action is one of the attendance actions a subject can receive. The set is closed:
// only types in this package can implement it.
type Action interface {
	Name() string
	apply(log model.Log, category model.Category, now time.Time) (model.Log, error)
}

// Wire names used by clients.
const (
	ActionArrive     = "entrada"
	ActionLeave      = "saida"
	ActionMarkAbsent = "faltou"
)

type (
	Arrive     struct{}
	Leave      struct{}
	MarkAbsent struct{}
)

func (Arrive) Name() string     { return ActionArrive }
func (Leave) Name() string      { return ActionLeave }
func (MarkAbsent) Name() string { return ActionMarkAbsent }

// ParseAction maps a wire name to its action.
func ParseAction(name string) (Action, error) {
	switch name {
	case ActionArrive:
		return Arrive{}, nil
	case ActionLeave:
		return Leave{}, nil
	case ActionMarkAbsent:
		return MarkAbsent{}, nil
	default:
		return nil, model.Validation("unknown action " + name)
	}
}

// StateOf derives the attendance state from the last attendance entry.
func StateOf(log model.Log) State {
	if _, last, ok := log.LastAttendanceEntry(); ok && last.IsOpen() {
		return StatePresent
	}
	return StateAbsent
}

// Apply computes the log resulting from action at instant now. On error the
// returned log is the input log, untouched.
func Apply(log model.Log, category model.Category, action Action, now time.Time) (model.Log, error) {
	return action.apply(log, category, now.UTC())
}

func (Arrive) apply(log model.Log, _ model.Category, now time.Time) (model.Log, error) {
	if StateOf(log) != StateAbsent {
		return log, model.InvalidTransition("arrive: subject already has an open entry")
	}
	return log.Append(model.NewAttendanceEntry(now)), nil
}

func (Leave) apply(log model.Log, _ model.Category, now time.Time) (model.Log, error) {
	idx, open, ok := log.LastAttendanceEntry()
	if !ok || !open.IsOpen() {
		return log, model.InvalidTransition("leave: subject has no open entry")
	}
	// An interval never closes before it opened, even with skewed clocks.
	if now.Before(*open.ArrivalTime) {
		now = *open.ArrivalTime
	}
	out := log.Clone()
	out[idx].DepartureTime = &now
	return out, nil
}

func (MarkAbsent) apply(log model.Log, category model.Category, now time.Time) (model.Log, error) {
	if !category.CanMarkAbsent() {
		return log, model.InvalidTransition("mark absent: not available for " + string(category))
	}
	return log.Append(model.NewAbsenceEntry(now)), nil
}

// Availability derives which actions are legal for a subject. It is never stored;
// callers recompute it on every read.
func Availability(log model.Log, category model.Category) model.Availability {
	present := StateOf(log) == StatePresent
	return model.Availability{
		ArriveAllowed:     !present,
		LeaveAllowed:      present,
		MarkAbsentAllowed: category.CanMarkAbsent(),
	}
}
