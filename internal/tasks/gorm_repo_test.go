package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTempGormRepo(t *testing.T) *GormRepo {
	t.Helper()
	repo, err := NewGormRepo(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func TestGormRepo_CreateAndFind(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	task := NewTask("first")
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatalf("expected assigned ID")
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "first" || got.Status != StatusPending || got.Priority != PriorityMedium {
		t.Errorf("unexpected task %+v", got)
	}
	if got.UpdatedAt != nil {
		t.Errorf("updatedAt must be nil on a fresh row")
	}

	second := NewTask("second")
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID <= task.ID {
		t.Errorf("expected monotonic IDs: %d then %d", task.ID, second.ID)
	}
}

func TestGormRepo_FindByIDNotFound(t *testing.T) {
	repo := newTempGormRepo(t)

	if _, err := repo.FindByID(context.Background(), 999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormRepo_ListOrdering(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, title := range []string{"oldest", "middle", "newest"} {
		task := NewTask(title)
		task.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	list, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list))
	}
	if list[0].Title != "newest" || list[2].Title != "oldest" {
		t.Errorf("expected newest first, got %q .. %q", list[0].Title, list[2].Title)
	}
}

func TestGormRepo_FiltersAndCounts(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	done := NewTask("done one")
	done.Status = StatusCompleted
	urgent := NewTask("urgent one")
	urgent.Priority = PriorityHigh
	desc := "contains milk somewhere"
	plain := NewTask("groceries")
	plain.Description = &desc
	for _, task := range []*Task{done, urgent, plain} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	byStatus, err := repo.FindByStatus(ctx, StatusCompleted)
	if err != nil {
		t.Fatalf("findByStatus: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Title != "done one" {
		t.Errorf("findByStatus mismatch: %+v", byStatus)
	}

	byPriority, err := repo.FindByPriority(ctx, PriorityHigh)
	if err != nil {
		t.Fatalf("findByPriority: %v", err)
	}
	if len(byPriority) != 1 || byPriority[0].Title != "urgent one" {
		t.Errorf("findByPriority mismatch: %+v", byPriority)
	}

	found, err := repo.Search(ctx, "milk")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "groceries" {
		t.Errorf("search mismatch: %+v", found)
	}

	total, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("countAll: %v", err)
	}
	if total != 3 {
		t.Errorf("expected countAll=3, got %d", total)
	}
	completed, err := repo.CountByStatus(ctx, StatusCompleted)
	if err != nil {
		t.Fatalf("countByStatus: %v", err)
	}
	if completed != 1 {
		t.Errorf("expected 1 completed, got %d", completed)
	}
}

func TestGormRepo_Paginate(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		task := NewTask("task")
		task.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page2, err := repo.Paginate(ctx, 2, 10)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(page2) != 5 {
		t.Errorf("expected 5 tasks on page 2, got %d", len(page2))
	}
	empty, err := repo.Paginate(ctx, 3, 10)
	if err != nil {
		t.Fatalf("paginate past end: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}

func TestGormRepo_UpdateAndDelete(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	task := NewTask("mutable")
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	task.Status = StatusInProgress
	if err := repo.Update(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.UpdatedAt == nil {
		t.Errorf("expected updatedAt set after update")
	}

	missing := NewTask("ghost")
	missing.ID = 12345
	if err := repo.Update(ctx, missing); err != ErrNotFound {
		t.Errorf("expected ErrNotFound updating unknown id, got %v", err)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, task.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, task.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestGormRepo_FindOverdue(t *testing.T) {
	repo := newTempGormRepo(t)
	ctx := context.Background()

	lastWeek := time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)

	late := NewTask("late")
	late.DueDate = &yesterday
	veryLate := NewTask("very late")
	veryLate.DueDate = &lastWeek
	doneLate := NewTask("done late")
	doneLate.DueDate = &lastWeek
	doneLate.Status = StatusCompleted
	for _, task := range []*Task{late, veryLate, doneLate} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := repo.FindOverdue(ctx)
	if err != nil {
		t.Fatalf("findOverdue: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 overdue, got %d", len(got))
	}
	if got[0].Title != "very late" || got[1].Title != "late" {
		t.Errorf("expected due-date ascending, got %q then %q", got[0].Title, got[1].Title)
	}
}
