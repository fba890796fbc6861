package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryRepo is a mutex-guarded map implementation of Repository.
// It backs the handler tests and serves as the store when no database
// path is configured.
type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t.ID = r.seq
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.store[t.ID] = *t
	return nil
}

func (r *InMemoryRepo) FindByID(_ context.Context, id int64) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *InMemoryRepo) Update(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[t.ID]; !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.UpdatedAt = &now
	r.store[t.ID] = *t
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) ListAll(_ context.Context) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(Task) bool { return true }), nil
}

func (r *InMemoryRepo) FindByStatus(_ context.Context, status Status) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(t Task) bool { return t.Status == status }), nil
}

func (r *InMemoryRepo) FindByPriority(_ context.Context, priority Priority) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(t Task) bool { return t.Priority == priority }), nil
}

func (r *InMemoryRepo) Search(_ context.Context, query string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	return r.collect(func(t Task) bool {
		if strings.Contains(strings.ToLower(t.Title), q) {
			return true
		}
		return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
	}), nil
}

func (r *InMemoryRepo) Paginate(_ context.Context, page, limit int) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.collect(func(Task) bool { return true })
	offset := (page - 1) * limit
	if offset >= len(all) {
		return []Task{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *InMemoryRepo) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.store)), nil
}

func (r *InMemoryRepo) CountByStatus(_ context.Context, status Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.store {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepo) FindOverdue(_ context.Context) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	out := make([]Task, 0)
	for _, t := range r.store {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// collect returns matching tasks newest-first. Callers must hold mu.
func (r *InMemoryRepo) collect(match func(Task) bool) []Task {
	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
