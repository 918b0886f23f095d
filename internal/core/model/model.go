package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category defines which kind of person a subject is.
type Category string

const (
	CategoryEmployee        Category = "employee"
	CategoryVisitor         Category = "visitor"
	CategoryServiceProvider Category = "service_provider"
)

// requiredAttributes lists the static fields each category must carry on registration.
var requiredAttributes = map[Category][]string{
	CategoryEmployee:        {"name", "cpf", "nascimento", "admissao", "salario", "numero", "email", "address", "contract", "role"},
	CategoryVisitor:         {"name", "rg", "cpf", "phone", "email", "address"},
	CategoryServiceProvider: {"name", "company", "address", "phone", "service", "rg", "cpf", "cnpj"},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := requiredAttributes[c]
	return ok
}

// RequiredAttributes returns the attribute keys a subject of this category needs.
func (c Category) RequiredAttributes() []string {
	return append([]string(nil), requiredAttributes[c]...)
}

// CanMarkAbsent reports whether subjects of this category track absences.
func (c Category) CanMarkAbsent() bool {
	return c == CategoryEmployee
}

// Attributes are the static biographical fields of a subject.
type Attributes map[string]string

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Validate checks that every required attribute of the category is present and non-blank,
// and that no unknown key was supplied.
func (a Attributes) Validate(c Category) error {
	if !c.Valid() {
		return Validation(fmt.Sprintf("unknown category %q", c))
	}
	known := make(map[string]bool)
	var missing []string
	for _, key := range requiredAttributes[c] {
		known[key] = true
		if strings.TrimSpace(a[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	for key := range a {
		if !known[key] {
			return Validation(fmt.Sprintf("unknown field %q for %s", key, c))
		}
	}
	return nil
}

// Day is a calendar date without a time of day, encoded as YYYY-MM-DD.
type Day struct {
	time.Time
}

const dayLayout = "2006-01-02"

// DayOf truncates t to its calendar day in UTC.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Day) String() string {
	return d.Format(dayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return fmt.Errorf("invalid day %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Entry is one element of a Log. It is either an attendance interval
// (ArrivalTime set) or an absence marker (Absence true, AbsenceDate set).
type Entry struct {
	ArrivalTime   *time.Time `json:"arrivalTime,omitempty"`
	DepartureTime *time.Time `json:"departureTime,omitempty"`
	Absence       bool       `json:"absence,omitempty"`
	AbsenceDate   *Day       `json:"absenceDate,omitempty"`
}

// NewAttendanceEntry opens an attendance interval at the given instant.
func NewAttendanceEntry(arrival time.Time) Entry {
	at := arrival.UTC()
	return Entry{ArrivalTime: &at}
}

// NewAbsenceEntry marks the day containing the given instant as absent.
func NewAbsenceEntry(at time.Time) Entry {
	day := DayOf(at)
	return Entry{Absence: true, AbsenceDate: &day}
}

// IsAbsence reports whether the entry is an absence marker.
func (e Entry) IsAbsence() bool {
	return e.Absence
}

// IsOpen reports whether the entry is an attendance interval without a departure.
func (e Entry) IsOpen() bool {
	return !e.Absence && e.ArrivalTime != nil && e.DepartureTime == nil
}

// Validate rejects entries that mix the two variants.
func (e Entry) Validate() error {
	if e.Absence {
		if e.AbsenceDate == nil {
			return Validation("absence entry without absenceDate")
		}
		if e.ArrivalTime != nil || e.DepartureTime != nil {
			return Validation("absence entry carries attendance times")
		}
		return nil
	}
	if e.AbsenceDate != nil {
		return Validation("attendance entry carries absenceDate")
	}
	if e.ArrivalTime == nil {
		return Validation("attendance entry without arrivalTime")
	}
	if e.DepartureTime != nil && e.DepartureTime.Before(*e.ArrivalTime) {
		return Validation("departureTime before arrivalTime")
	}
	return nil
}

func (e Entry) clone() Entry {
	out := Entry{Absence: e.Absence}
	if e.ArrivalTime != nil {
		t := *e.ArrivalTime
		out.ArrivalTime = &t
	}
	if e.DepartureTime != nil {
		t := *e.DepartureTime
		out.DepartureTime = &t
	}
	if e.AbsenceDate != nil {
		d := *e.AbsenceDate
		out.AbsenceDate = &d
	}
	return out
}

// Log is the append-ordered sequence of entries owned by one subject.
type Log []Entry

// Append returns a new log with entry added at the end. The receiver is not modified.
func (l Log) Append(entry Entry) Log {
	out := make(Log, len(l), len(l)+1)
	copy(out, l)
	return append(out, entry)
}

// Clone returns a deep copy of the log.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	for i, e := range l {
		out[i] = e.clone()
	}
	return out
}

// LastAttendanceEntry returns the most recently appended attendance entry and its index.
// Absence entries are skipped: they never count as the tail for open/closed tracking.
func (l Log) LastAttendanceEntry() (int, Entry, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if !l[i].IsAbsence() {
			return i, l[i], true
		}
	}
	return -1, Entry{}, false
}

// CheckInvariant verifies every entry and that at most one attendance entry is open,
// that one being the last attendance entry.
func (l Log) CheckInvariant() error {
	last, _, _ := l.LastAttendanceEntry()
	for i, e := range l {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if e.IsOpen() && i != last {
			return Validation(fmt.Sprintf("entry %d is open but is not the last attendance entry", i))
		}
	}
	return nil
}

// Subject is a tracked person together with the log it owns.
type Subject struct {
	ID         string     `json:"id"`
	Category   Category   `json:"category"`
	Attributes Attributes `json:"attributes"`
	Logs       Log        `json:"logs"`
	CreatedAt  time.Time  `json:"createdAt"`
	Version    int64      `json:"version"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (s Subject) Clone() Subject {
	out := s
	out.Attributes = s.Attributes.Clone()
	out.Logs = s.Logs.Clone()
	if out.Logs == nil {
		out.Logs = Log{}
	}
	return out
}

// Availability tells the presentation layer which actions are currently legal.
type Availability struct {
	ArriveAllowed     bool `json:"arriveAllowed"`
	LeaveAllowed      bool `json:"leaveAllowed"`
	MarkAbsentAllowed bool `json:"markAbsentAllowed"`
}

// PresenceSummary aggregates a subject's log.
type PresenceSummary struct {
	SubjectID    string     `json:"subjectId"`
	Visits       int        `json:"visits"`
	ClosedVisits int        `json:"closedVisits"`
	WorkedHours  float64    `json:"workedHours"`
	OpenSince    *time.Time `json:"openSince,omitempty"`
	Absences     int        `json:"absences"`
	LastAbsence  *Day       `json:"lastAbsence,omitempty"`
}
