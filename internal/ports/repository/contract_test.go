package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"presence.service/internal/core/model"
)

// contractSuite runs the same behaviour checks against every Repository implementation.
type contractSuite struct {
	suite.Suite
	ctx  context.Context
	repo Repository
	t0   time.Time
}

func (s *contractSuite) newSubject(category model.Category, offset time.Duration) *model.Subject {
	return &model.Subject{
		ID:         uuid.NewString(),
		Category:   category,
		Attributes: model.Attributes{"name": "Subject " + offset.String()},
		Logs:       model.Log{},
		CreatedAt:  s.t0.Add(offset),
		Version:    1,
	}
}

func (s *contractSuite) TestCreateAndGet() {
	subject := s.newSubject(model.CategoryEmployee, 0)
	subject.Logs = model.Log{model.NewAttendanceEntry(s.t0.Add(123 * time.Nanosecond))}
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	got, err := s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.Require().NoError(err)
	s.Equal(subject.ID, got.ID)
	s.Equal(subject.Category, got.Category)
	s.Equal(subject.Attributes, got.Attributes)
	s.Equal(int64(1), got.Version)
	s.True(got.CreatedAt.Equal(subject.CreatedAt))
	s.Require().Len(got.Logs, 1)
	s.True(got.Logs[0].ArrivalTime.Equal(*subject.Logs[0].ArrivalTime))
}

func (s *contractSuite) TestGetIsScopedByCategory() {
	subject := s.newSubject(model.CategoryVisitor, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	_, err := s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.repo.Get(s.ctx, model.CategoryVisitor, uuid.NewString())
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *contractSuite) TestListOrdersByCreation() {
	second := s.newSubject(model.CategoryServiceProvider, time.Minute)
	first := s.newSubject(model.CategoryServiceProvider, 0)
	other := s.newSubject(model.CategoryVisitor, 0)
	for _, subj := range []*model.Subject{second, first, other} {
		s.Require().NoError(s.repo.Create(s.ctx, subj))
	}

	list, err := s.repo.List(s.ctx, model.CategoryServiceProvider)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[1].ID)
}

func (s *contractSuite) TestMutatePersistsAndBumpsVersion() {
	subject := s.newSubject(model.CategoryEmployee, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	updated, err := s.repo.Mutate(s.ctx, model.CategoryEmployee, subject.ID, func(subj *model.Subject) error {
		subj.Logs = subj.Logs.Append(model.NewAbsenceEntry(s.t0))
		return nil
	})
	s.Require().NoError(err)
	s.Equal(int64(2), updated.Version)

	got, err := s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.Require().Len(got.Logs, 1)
	s.True(got.Logs[0].IsAbsence())
}

func (s *contractSuite) TestMutateErrorWritesNothing() {
	subject := s.newSubject(model.CategoryEmployee, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	boom := errors.New("boom")
	_, err := s.repo.Mutate(s.ctx, model.CategoryEmployee, subject.ID, func(subj *model.Subject) error {
		subj.Logs = subj.Logs.Append(model.NewAbsenceEntry(s.t0))
		subj.Attributes["name"] = "changed"
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.Require().NoError(err)
	s.Empty(got.Logs)
	s.Equal(subject.Attributes["name"], got.Attributes["name"])
	s.Equal(int64(1), got.Version)
}

func (s *contractSuite) TestMutateMissing() {
	_, err := s.repo.Mutate(s.ctx, model.CategoryEmployee, uuid.NewString(), func(*model.Subject) error { return nil })
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *contractSuite) TestConcurrentMutationsAreSerialized() {
	subject := s.newSubject(model.CategoryEmployee, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.repo.Mutate(s.ctx, model.CategoryEmployee, subject.ID, func(subj *model.Subject) error {
				subj.Logs = subj.Logs.Append(model.NewAbsenceEntry(s.t0.Add(time.Duration(i) * 24 * time.Hour)))
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	got, err := s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.Require().NoError(err)
	s.Len(got.Logs, writers)
	s.Equal(int64(1+writers), got.Version)
}

func (s *contractSuite) TestDelete() {
	subject := s.newSubject(model.CategoryVisitor, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	s.ErrorIs(s.repo.Delete(s.ctx, model.CategoryEmployee, subject.ID), model.ErrNotFound)
	s.Require().NoError(s.repo.Delete(s.ctx, model.CategoryVisitor, subject.ID))

	_, err := s.repo.Get(s.ctx, model.CategoryVisitor, subject.ID)
	s.ErrorIs(err, model.ErrNotFound)
	s.ErrorIs(s.repo.Delete(s.ctx, model.CategoryVisitor, subject.ID), model.ErrNotFound)
}
