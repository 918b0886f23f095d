package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ModelSuite struct {
	suite.Suite
	t0 time.Time
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}

func (s *ModelSuite) SetupTest() {
	s.t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
}

func validEmployee() Attributes {
	return Attributes{
		"name": "Ana", "cpf": "123", "nascimento": "1990-01-01", "admissao": "2020-01-01",
		"salario": "1000", "numero": "7", "email": "ana@example.com", "address": "Rua A",
		"contract": "CLT", "role": "dev",
	}
}

func (s *ModelSuite) TestAttributesValidate() {
	s.Run("complete employee passes", func() {
		s.NoError(validEmployee().Validate(CategoryEmployee))
	})

	s.Run("blank field is missing", func() {
		attrs := validEmployee()
		attrs["email"] = "  "
		err := attrs.Validate(CategoryEmployee)
		s.Require().ErrorIs(err, ErrValidation)
		s.Contains(err.Error(), "email")
	})

	s.Run("unknown field rejected", func() {
		attrs := validEmployee()
		attrs["shoe_size"] = "42"
		err := attrs.Validate(CategoryEmployee)
		s.Require().ErrorIs(err, ErrValidation)
		s.Contains(err.Error(), "shoe_size")
	})

	s.Run("unknown category rejected", func() {
		s.ErrorIs(validEmployee().Validate(Category("robot")), ErrValidation)
	})
}

func (s *ModelSuite) TestCategoryCapabilities() {
	s.True(CategoryEmployee.CanMarkAbsent())
	s.False(CategoryVisitor.CanMarkAbsent())
	s.False(CategoryServiceProvider.CanMarkAbsent())

	required := CategoryVisitor.RequiredAttributes()
	required[0] = "mutated"
	s.Equal("name", CategoryVisitor.RequiredAttributes()[0])
}

func (s *ModelSuite) TestEntryJSONRoundTrip() {
	departure := s.t0.Add(8*time.Hour + 123*time.Nanosecond)
	closed := NewAttendanceEntry(s.t0)
	closed.DepartureTime = &departure
	log := Log{closed, NewAbsenceEntry(s.t0.Add(24 * time.Hour)), NewAttendanceEntry(s.t0.Add(48 * time.Hour))}

	raw, err := json.Marshal(log)
	s.Require().NoError(err)
	s.Contains(string(raw), `"absenceDate":"2026-10-20"`)
	s.NotContains(string(raw), `"departureTime":null`)

	var decoded Log
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Require().Len(decoded, 3)
	s.True(decoded[0].ArrivalTime.Equal(*log[0].ArrivalTime))
	s.True(decoded[0].DepartureTime.Equal(departure))
	s.True(decoded[1].IsAbsence())
	s.Equal("2026-10-20", decoded[1].AbsenceDate.String())
	s.True(decoded[2].IsOpen())
	s.NoError(decoded.CheckInvariant())
}

func (s *ModelSuite) TestDayRejectsGarbage() {
	var d Day
	s.Error(json.Unmarshal([]byte(`"19/10/2026"`), &d))
	s.Error(json.Unmarshal([]byte(`20261019`), &d))
}

func (s *ModelSuite) TestEntryValidate() {
	day := DayOf(s.t0)
	before := s.t0.Add(-time.Minute)

	cases := []struct {
		name  string
		entry Entry
	}{
		{"absence without date", Entry{Absence: true}},
		{"absence with arrival", Entry{Absence: true, AbsenceDate: &day, ArrivalTime: &s.t0}},
		{"attendance with absence date", Entry{ArrivalTime: &s.t0, AbsenceDate: &day}},
		{"attendance without arrival", Entry{}},
		{"departure before arrival", Entry{ArrivalTime: &s.t0, DepartureTime: &before}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.ErrorIs(tc.entry.Validate(), ErrValidation)
		})
	}
}

func (s *ModelSuite) TestCheckInvariantRejectsOpenEntryBeforeTail() {
	log := Log{NewAttendanceEntry(s.t0), NewAttendanceEntry(s.t0.Add(time.Hour))}
	s.ErrorIs(log.CheckInvariant(), ErrValidation)
}

func (s *ModelSuite) TestLastAttendanceEntrySkipsAbsences() {
	log := Log{NewAttendanceEntry(s.t0), NewAbsenceEntry(s.t0)}
	idx, e, ok := log.LastAttendanceEntry()
	s.True(ok)
	s.Equal(0, idx)
	s.True(e.IsOpen())
	s.NoError(log.CheckInvariant())

	_, _, ok = Log{NewAbsenceEntry(s.t0)}.LastAttendanceEntry()
	s.False(ok)
}

func (s *ModelSuite) TestAppendAndCloneDoNotAlias() {
	base := make(Log, 1, 4)
	base[0] = NewAttendanceEntry(s.t0)

	a := base.Append(NewAbsenceEntry(s.t0))
	b := base.Append(NewAttendanceEntry(s.t0))
	s.Len(base, 1)
	s.True(a[1].IsAbsence())
	s.False(b[1].IsAbsence())

	clone := a.Clone()
	later := s.t0.Add(time.Hour)
	clone[0].DepartureTime = &later
	s.Nil(a[0].DepartureTime)
}

func TestErrorKinds(t *testing.T) {
	err := Persistence("update subject", errors.New("serialization failure"), true)
	wrapped := errors.Join(errors.New("context"), err)

	require.ErrorIs(t, wrapped, ErrPersistence)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, KindPersistence, KindOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(NotFound("x")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Contains(t, err.Error(), "serialization failure")
}
