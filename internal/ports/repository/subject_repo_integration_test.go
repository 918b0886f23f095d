//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"presence.service/internal/core/model"
	"presence.service/pkg/database"
)

type SubjectRepositorySuite struct {
	contractSuite
	container *postgres.PostgresContainer
	store     *SubjectRepository
}

func TestSubjectRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SubjectRepositorySuite))
}

func (s *SubjectRepositorySuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("presence_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := database.Open(ctx, dsn, 20)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(ctx, db))
	// Applying the schema twice must be harmless.
	s.Require().NoError(database.Migrate(ctx, db))

	s.store = &SubjectRepository{DB: db}
	s.repo = s.store
}

func (s *SubjectRepositorySuite) TearDownSuite() {
	if s.store != nil {
		s.store.DB.Close()
	}
	if s.container != nil {
		s.NoError(testcontainers.TerminateContainer(s.container))
	}
}

func (s *SubjectRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	_, err := s.store.DB.ExecContext(s.ctx, `TRUNCATE subjects`)
	s.Require().NoError(err)
}

func (s *SubjectRepositorySuite) TestCorruptLogIsRejectedOnRead() {
	subject := s.newSubject(model.CategoryEmployee, 0)
	s.Require().NoError(s.repo.Create(s.ctx, subject))

	_, err := s.store.DB.ExecContext(s.ctx,
		`UPDATE subjects SET logs = '[{"absence": true}]'::jsonb WHERE id = $1`, subject.ID)
	s.Require().NoError(err)

	_, err = s.repo.Get(s.ctx, model.CategoryEmployee, subject.ID)
	s.ErrorIs(err, model.ErrPersistence)
}
