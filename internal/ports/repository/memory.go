package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"presence.service/internal/core/model"
)

// InMemoryRepository keeps subjects in a map. Reads take a shared lock on the map only;
// mutations of one subject are serialized through a per-subject mutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	subjects map[string]model.Subject
	locks    *keyedMutex
}

// NewInMemoryRepository builds an empty store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		subjects: make(map[string]model.Subject),
		locks:    newKeyedMutex(),
	}
}

func (r *InMemoryRepository) List(_ context.Context, category model.Category) ([]model.Subject, error) {
	r.mu.RLock()
	out := make([]model.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		if s.Category == category {
			out = append(out, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, category model.Category, id string) (*model.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subjects[id]
	if !ok || s.Category != category {
		return nil, model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	c := s.Clone()
	return &c, nil
}

func (r *InMemoryRepository) Create(_ context.Context, s *model.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subjects[s.ID]; exists {
		return model.Persistence("create subject", fmt.Errorf("id %s already exists", s.ID), false)
	}
	r.subjects[s.ID] = s.Clone()
	return nil
}

func (r *InMemoryRepository) Mutate(ctx context.Context, category model.Category, id string, fn MutateFunc) (*model.Subject, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	current, err := r.Get(ctx, category, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	current.Version++

	r.mu.Lock()
	r.subjects[id] = current.Clone()
	r.mu.Unlock()
	return current, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, category model.Category, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.Category != category {
		return model.NotFound(fmt.Sprintf("%s %s", category, id))
	}
	delete(r.subjects, id)
	return nil
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
