package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const orderNewestFirst = "created_at DESC, id DESC"

// GormRepo implements Repository on top of a GORM-managed SQLite
// database.
type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(path string) (*GormRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (r *GormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates the tasks table, or upgrades a legacy one that
// predates the priority and due_date columns.
func (r *GormRepo) AutoMigrate() error {
	if err := r.db.AutoMigrate(&Task{}); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	// Legacy rows existed before priority had a column default.
	if err := r.db.Model(&Task{}).Where("priority IS NULL OR priority = ''").
		Update("priority", PriorityMedium).Error; err != nil {
		return fmt.Errorf("failed to backfill priority: %w", err)
	}
	return nil
}

func (r *GormRepo) Create(ctx context.Context, t *Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *GormRepo) FindByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

func (r *GormRepo) Update(ctx context.Context, t *Task) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&Task{}).Where("id = ?", t.ID).Updates(map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"due_date":    t.DueDate,
		"updated_at":  now,
	})
	if err := res.Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	t.UpdatedAt = &now
	return nil
}

func (r *GormRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&Task{}, id)
	if err := res.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) ListAll(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := r.db.WithContext(ctx).Order(orderNewestFirst).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return out, nil
}

func (r *GormRepo) FindByStatus(ctx context.Context, status Status) ([]Task, error) {
	var out []Task
	if err := r.db.WithContext(ctx).Where("status = ?", status).
		Order(orderNewestFirst).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks by status: %w", err)
	}
	return out, nil
}

func (r *GormRepo) FindByPriority(ctx context.Context, priority Priority) ([]Task, error) {
	var out []Task
	if err := r.db.WithContext(ctx).Where("priority = ?", priority).
		Order(orderNewestFirst).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks by priority: %w", err)
	}
	return out, nil
}

func (r *GormRepo) Search(ctx context.Context, query string) ([]Task, error) {
	like := "%" + query + "%"
	var out []Task
	if err := r.db.WithContext(ctx).Where("title LIKE ? OR description LIKE ?", like, like).
		Order(orderNewestFirst).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return out, nil
}

func (r *GormRepo) Paginate(ctx context.Context, page, limit int) ([]Task, error) {
	offset := (page - 1) * limit
	var out []Task
	if err := r.db.WithContext(ctx).Order(orderNewestFirst).
		Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to paginate tasks: %w", err)
	}
	return out, nil
}

func (r *GormRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Task{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

func (r *GormRepo) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Task{}).Where("status = ?", status).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	return n, nil
}

func (r *GormRepo) FindOverdue(ctx context.Context) ([]Task, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	var out []Task
	if err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", today, StatusCompleted).
		Order("due_date ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to find overdue tasks: %w", err)
	}
	return out, nil
}
