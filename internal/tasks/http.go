package tasks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type createTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"dueDate"`
}

// updateTaskRequest carries a partial update: nil means "leave the
// field alone". Non-nil values are validated like on create.
type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"dueDate"`
}

// response is the uniform envelope every endpoint returns.
type response struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Message    string            `json:"message,omitempty"`
	Total      *int64            `json:"total,omitempty"`
	Pagination *paginationMeta   `json:"pagination,omitempty"`
}

type paginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type taskView struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"dueDate"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`
}

type statsView struct {
	Total          int64   `json:"total"`
	Pending        int64   `json:"pending"`
	InProgress     int64   `json:"inProgress"`
	Completed      int64   `json:"completed"`
	Overdue        int64   `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
}

func RegisterRoutes(r chi.Router, repo Repository, logger *slog.Logger) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", listTasks(repo, logger))
		r.Post("/", createTask(repo, logger))
		r.Get("/stats", taskStats(repo, logger))
		r.Get("/overdue", overdueTasks(repo, logger))
		r.Get("/{id:[0-9]+}", showTask(repo, logger))
		r.Put("/{id:[0-9]+}", updateTask(repo, logger))
		r.Patch("/{id:[0-9]+}", updateTask(repo, logger))
		r.Delete("/{id:[0-9]+}", deleteTask(repo, logger))
	})
}

// listTasks dispatches on the filter parameters. Filters are mutually
// exclusive: a search term wins over status, status over priority,
// and pagination applies only when no filter is active. Filtered
// branches return the whole result as a single page.
func listTasks(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		page := clampPage(q.Get("page"))
		limit := clampLimit(q.Get("limit"))
		search := strings.TrimSpace(q.Get("search"))
		status := q.Get("status")
		priority := q.Get("priority")

		var (
			list []Task
			err  error
		)
		switch {
		case search != "":
			list, err = repo.Search(ctx, search)
		case status != "":
			list, err = repo.FindByStatus(ctx, Status(status))
		case priority != "":
			list, err = repo.FindByPriority(ctx, Priority(priority))
		default:
			list, err = repo.Paginate(ctx, page, limit)
		}
		if err != nil {
			storeError(w, logger, "list", err)
			return
		}

		meta := paginationMeta{Page: 1, Limit: limit, Total: int64(len(list)), TotalPages: 1}
		if search == "" && status == "" && priority == "" {
			total, err := repo.CountAll(ctx)
			if err != nil {
				storeError(w, logger, "count", err)
				return
			}
			meta = paginationMeta{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: totalPages(total, limit),
			}
		}

		writeJSON(w, http.StatusOK, response{
			Success:    true,
			Data:       serializeTasks(list),
			Pagination: &meta,
		})
	}
}

func showTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathID(r)
		t, err := repo.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				notFound(w)
				return
			}
			storeError(w, logger, "show", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: serializeTask(t)})
	}
}

func createTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "Invalid JSON"})
			return
		}

		due, err := parseDueDate(req.DueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Success: false,
				Error:   "Invalid dueDate format. Use YYYY-MM-DD",
			})
			return
		}

		if errs := validateStruct(req); errs != nil {
			writeJSON(w, http.StatusBadRequest, response{Success: false, Errors: errs})
			return
		}

		t := NewTask(req.Title)
		t.Description = req.Description
		t.DueDate = due
		if req.Status != "" {
			t.Status = Status(req.Status)
		}
		if req.Priority != "" {
			t.Priority = Priority(req.Priority)
		}

		if err := repo.Create(r.Context(), t); err != nil {
			storeError(w, logger, "create", err)
			return
		}

		writeJSON(w, http.StatusCreated, response{
			Success: true,
			Message: "Task created successfully",
			Data:    serializeTask(t),
		})
	}
}

func updateTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathID(r)
		t, err := repo.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				notFound(w)
				return
			}
			storeError(w, logger, "update", err)
			return
		}

		var req updateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "Invalid JSON"})
			return
		}

		due, derr := parseDueDate(req.DueDate)
		if derr != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Success: false,
				Error:   "Invalid dueDate format. Use YYYY-MM-DD",
			})
			return
		}

		if errs := validateStruct(req); errs != nil {
			writeJSON(w, http.StatusBadRequest, response{Success: false, Errors: errs})
			return
		}

		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = req.Description
		}
		if req.Status != nil {
			t.Status = Status(*req.Status)
		}
		if req.Priority != nil {
			t.Priority = Priority(*req.Priority)
		}
		// An empty string is treated like an absent key; updates
		// cannot clear a due date.
		if req.DueDate != nil && *req.DueDate != "" {
			t.DueDate = due
		}

		if err := repo.Update(r.Context(), t); err != nil {
			if errors.Is(err, ErrNotFound) {
				notFound(w)
				return
			}
			storeError(w, logger, "update", err)
			return
		}

		writeJSON(w, http.StatusOK, response{
			Success: true,
			Message: "Task updated successfully",
			Data:    serializeTask(t),
		})
	}
}

func deleteTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathID(r)
		if err := repo.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				notFound(w)
				return
			}
			storeError(w, logger, "delete", err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Message: "Task deleted successfully"})
	}
}

func taskStats(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		total, err := repo.CountAll(ctx)
		if err != nil {
			storeError(w, logger, "stats", err)
			return
		}
		counts := make(map[Status]int64, 3)
		for _, s := range []Status{StatusPending, StatusInProgress, StatusCompleted} {
			n, err := repo.CountByStatus(ctx, s)
			if err != nil {
				storeError(w, logger, "stats", err)
				return
			}
			counts[s] = n
		}
		overdue, err := repo.FindOverdue(ctx)
		if err != nil {
			storeError(w, logger, "stats", err)
			return
		}

		var rate float64
		if total > 0 {
			rate = math.Round(float64(counts[StatusCompleted])/float64(total)*10000) / 100
		}

		writeJSON(w, http.StatusOK, response{Success: true, Data: statsView{
			Total:          total,
			Pending:        counts[StatusPending],
			InProgress:     counts[StatusInProgress],
			Completed:      counts[StatusCompleted],
			Overdue:        int64(len(overdue)),
			CompletionRate: rate,
		}})
	}
}

func overdueTasks(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.FindOverdue(r.Context())
		if err != nil {
			storeError(w, logger, "overdue", err)
			return
		}
		total := int64(len(list))
		writeJSON(w, http.StatusOK, response{Success: true, Data: serializeTasks(list), Total: &total})
	}
}

func serializeTask(t *Task) taskView {
	v := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt.Format(timestampLayout),
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(dateLayout)
		v.DueDate = &due
	}
	if t.UpdatedAt != nil {
		upd := t.UpdatedAt.Format(timestampLayout)
		v.UpdatedAt = &upd
	}
	return v
}

func serializeTasks(ts []Task) []taskView {
	out := make([]taskView, 0, len(ts))
	for i := range ts {
		out = append(out, serializeTask(&ts[i]))
	}
	return out
}

// parseDueDate accepts nil or "" as "no due date". Dates are stored
// at UTC midnight.
func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, *s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func clampPage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultPage
	}
	return n
}

func clampLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, response{Success: false, Error: "Task not found"})
}

func storeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	logger.Error("store_error", slog.String("op", op), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, response{Success: false, Error: "Internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
