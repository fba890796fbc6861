package tasks

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is the persisted entity. Timestamps are managed by the
// repositories, not by GORM's auto-tracking: UpdatedAt must stay nil
// until the first mutation.
type Task struct {
	ID          int64      `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Status      Status     `gorm:"size:50;not null;default:pending" json:"status"`
	Priority    Priority   `gorm:"size:20;not null;default:medium" json:"priority"`
	DueDate     *time.Time `gorm:"type:date" json:"dueDate"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

// NewTask returns a task with the documented defaults applied.
func NewTask(title string) *Task {
	return &Task{
		Title:     title,
		Status:    StatusPending,
		Priority:  PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
}

// IsOverdue reports whether the task's due date has passed and the
// task is not completed. Comparison is date-only: a task due today is
// not yet overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return t.DueDate.Before(today)
}
