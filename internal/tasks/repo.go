package tasks

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("task not found")

// Repository is the task store. All list operations return tasks
// ordered by creation time descending (newest first) with ID as the
// tiebreak, except FindOverdue which orders by due date ascending so
// the soonest-due items come first.
//
// Filter operations do not validate their arguments; an unknown
// status or priority simply matches nothing.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id int64) error

	ListAll(ctx context.Context) ([]Task, error)
	FindByStatus(ctx context.Context, status Status) ([]Task, error)
	FindByPriority(ctx context.Context, priority Priority) ([]Task, error)
	// Search matches tasks whose title or description contains the
	// query as a substring, case-insensitively (SQLite LIKE semantics).
	Search(ctx context.Context, query string) ([]Task, error)
	// Paginate returns the slice at offset (page-1)*limit, at most
	// limit items. Callers are expected to pass page >= 1, limit >= 1.
	Paginate(ctx context.Context, page, limit int) ([]Task, error)
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	FindOverdue(ctx context.Context) ([]Task, error)
}
