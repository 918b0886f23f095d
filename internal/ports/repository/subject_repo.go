package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence.service/internal/core/model"
)

// SubjectRepository is the concrete implementation for a PostgreSQL database.
// Attributes and log live in JSONB columns of a single row so every write is atomic.
type SubjectRepository struct {
	DB *sql.DB
}

// NewSubjectRepository create new instance
func NewSubjectRepository(db *sql.DB) Repository {
	return &SubjectRepository{DB: db}
}

const subjectColumns = `id, category, attributes, logs, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*model.Subject, error) {
	var (
		s           model.Subject
		attrs, logs []byte
	)
	if err := row.Scan(&s.ID, &s.Category, &attrs, &logs, &s.CreatedAt, &s.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &s.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(logs, &s.Logs); err != nil {
		return nil, fmt.Errorf("decode logs of %s: %w", s.ID, err)
	}
	if s.Logs == nil {
		s.Logs = model.Log{}
	}
	if err := s.Logs.CheckInvariant(); err != nil {
		return nil, fmt.Errorf("stored log of %s is corrupt: %w", s.ID, err)
	}
	return &s, nil
}

// List returns every subject of a category, oldest first.
func (r *SubjectRepository) List(ctx context.Context, category model.Category) ([]model.Subject, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE category = $1 ORDER BY created_at, id`, string(category))
	if err != nil {
		return nil, classify("list subjects", err)
	}
	defer rows.Close()

	subjects := []model.Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, classify("list subjects", err)
		}
		subjects = append(subjects, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list subjects", err)
	}
	return subjects, nil
}

// Get fetches a complete subject record by its ID.
func (r *SubjectRepository) Get(ctx context.Context, category model.Category, id string) (*model.Subject, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.subject_id", id))

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1 AND category = $2`, id, string(category))
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	if err != nil {
		return nil, classify("get subject", err)
	}
	return s, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.subject_id", s.ID))

	attrs, logs, err := encode(s)
	if err != nil {
		return err
	}
	query := `INSERT INTO subjects (id, category, attributes, logs, created_at, version)
              VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.DB.ExecContext(ctx, query, s.ID, string(s.Category), attrs, logs, s.CreatedAt, s.Version)
	if err != nil {
		return classify("create subject", err)
	}
	return nil
}

// Mutate locks the subject row for the duration of fn, then writes it back and bumps its version.
func (r *SubjectRepository) Mutate(ctx context.Context, category model.Category, id string, fn MutateFunc) (*model.Subject, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.subject_id", id))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin mutation", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1 AND category = $2 FOR UPDATE`, id, string(category))
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	if err != nil {
		return nil, classify("lock subject", err)
	}

	if err := fn(s); err != nil {
		return nil, err
	}
	s.Version++

	attrs, logs, err := encode(s)
	if err != nil {
		return nil, err
	}
	query := `UPDATE subjects
              SET attributes = $1,
                  logs = $2,
                  version = $3
              WHERE id = $4`

	if _, err := tx.ExecContext(ctx, query, attrs, logs, s.Version, s.ID); err != nil {
		return nil, classify("update subject", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit mutation", err)
	}
	return s, nil
}

// Delete removes a subject and its log.
func (r *SubjectRepository) Delete(ctx context.Context, category model.Category, id string) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.subject_id", id))

	res, err := r.DB.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND category = $2`, id, string(category))
	if err != nil {
		return classify("delete subject", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete subject", err)
	}
	if n == 0 {
		return model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	return nil
}

func encode(s *model.Subject) (attrs, logs string, err error) {
	a, err := json.Marshal(s.Attributes)
	if err != nil {
		return "", "", fmt.Errorf("encode attributes: %w", err)
	}
	if s.Logs == nil {
		s.Logs = model.Log{}
	}
	l, err := json.Marshal(s.Logs)
	if err != nil {
		return "", "", fmt.Errorf("encode logs: %w", err)
	}
	return string(a), string(l), nil
}

// classify wraps a driver error as a persistence failure. Serialization failures and
// deadlocks are the only ones worth retrying.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	retryable := errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
	return model.Persistence(op, err, retryable)
}
