package repository

import (
	"context"

	"presence.service/internal/core/model"
)

// MutateFunc changes a subject in place. Returning an error aborts the write.
type MutateFunc func(subject *model.Subject) error

// Repository contract. A subject and its log are always read and written together.
type Repository interface {
	List(ctx context.Context, category model.Category) ([]model.Subject, error)
	Get(ctx context.Context, category model.Category, id string) (*model.Subject, error)
	Create(ctx context.Context, subject *model.Subject) error
	// Mutate runs fn against the current subject and persists the result atomically.
	// Concurrent calls for the same subject are serialized.
	Mutate(ctx context.Context, category model.Category, id string, fn MutateFunc) (*model.Subject, error)
	Delete(ctx context.Context, category model.Category, id string) error
}
