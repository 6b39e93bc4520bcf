package repositories

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"taskflow/internal/models"

	"github.com/gofrs/uuid"
)

// UpcomingWindow bounds GetUpcoming: due strictly after now and at most this
// far ahead.
const UpcomingWindow = 7 * 24 * time.Hour

// TaskStore is the durable side of a TaskRepository. The repository writes
// through to it before changing its in-memory collection.
type TaskStore interface {
	LoadTasks(ctx context.Context) ([]models.Task, error)
	InsertTask(ctx context.Context, task models.Task) error
	UpdateTask(ctx context.Context, task models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

type TaskRepositoryConfig struct {
	Clock       func() time.Time
	NewID       func() string
	InitialData []models.Task
	Store       TaskStore
}

func DefaultTaskRepositoryConfig() *TaskRepositoryConfig {
	return &TaskRepositoryConfig{
		Clock: time.Now,
		NewID: NewUUID,
	}
}

// NewUUID returns a random version 4 UUID string.
func NewUUID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// TaskRepository holds the task collection and answers queries against it.
// Reads return copies; the stored records only change through Create,
// CreateSubtask, Update and Delete.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks []models.Task
	now   func() time.Time
	newID func() string
	store TaskStore
}

func NewTaskRepository(config *TaskRepositoryConfig) *TaskRepository {
	if config == nil {
		config = DefaultTaskRepositoryConfig()
	}

	r := &TaskRepository{
		now:   config.Clock,
		newID: config.NewID,
		store: config.Store,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = NewUUID
	}

	r.tasks = make([]models.Task, 0, len(config.InitialData))
	for _, t := range config.InitialData {
		r.tasks = append(r.tasks, t.Clone())
	}

	return r
}

// Load replaces the in-memory collection with the contents of the store.
func (r *TaskRepository) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	tasks, err := r.store.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = tasks
	return nil
}

func (r *TaskRepository) GetAll() []models.Task {
	return r.filter(func(models.Task) bool { return true })
}

func (r *TaskRepository) GetByID(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	return r.tasks[i].Clone(), true
}

func (r *TaskRepository) Create(ctx context.Context, input models.TaskInput) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(ctx, input)
}

func (r *TaskRepository) CreateSubtask(ctx context.Context, parentID string, input models.TaskInput) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(parentID) < 0 {
		return models.Task{}, models.TaskNotFound(parentID)
	}

	parent := parentID
	input.ParentTaskID = &parent
	return r.createLocked(ctx, input)
}

func (r *TaskRepository) createLocked(ctx context.Context, input models.TaskInput) (models.Task, error) {
	id := r.newID()
	if r.indexOf(id) >= 0 {
		return models.Task{}, fmt.Errorf("creating task: generated id %q already in use", id)
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}

	task := models.Task{
		ID:           id,
		Title:        input.Title,
		Description:  input.Description,
		CategoryID:   input.CategoryID,
		DueDate:      input.DueDate,
		ReminderTime: input.ReminderTime,
		Status:       status,
		CreatedAt:    r.now(),
		ParentTaskID: input.ParentTaskID,
	}.Clone()

	if r.store != nil {
		if err := r.store.InsertTask(ctx, task); err != nil {
			return models.Task{}, fmt.Errorf("creating task: %w", err)
		}
	}

	r.tasks = append(r.tasks, task)
	return task.Clone(), nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Task{}, models.TaskNotFound(id)
	}

	updated := r.tasks[i].Clone()
	patch.Apply(&updated)

	if r.store != nil {
		if err := r.store.UpdateTask(ctx, updated); err != nil {
			return models.Task{}, fmt.Errorf("updating task %s: %w", id, err)
		}
	}

	r.tasks[i] = updated
	return updated.Clone(), nil
}

// Delete removes exactly one record. Subtasks of a deleted parent stay in the
// collection as orphans.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, models.TaskNotFound(id)
	}

	if r.store != nil {
		if err := r.store.DeleteTask(ctx, id); err != nil {
			return false, fmt.Errorf("deleting task %s: %w", id, err)
		}
	}

	r.tasks = slices.Delete(r.tasks, i, i+1)
	return true, nil
}

func (r *TaskRepository) GetByCategory(categoryID string) []models.Task {
	return r.filter(func(t models.Task) bool { return t.CategoryID == categoryID })
}

func (r *TaskRepository) GetByStatus(status models.TaskStatus) []models.Task {
	return r.filter(func(t models.Task) bool { return t.Status == status })
}

func (r *TaskRepository) GetOverdue() []models.Task {
	now := r.now()
	return r.filter(func(t models.Task) bool { return isOverdue(t, now) })
}

// GetDueToday uses the calendar day of the clock's location and does not
// filter on status.
func (r *TaskRepository) GetDueToday() []models.Task {
	start, end := dayBounds(r.now())
	return r.filter(func(t models.Task) bool {
		return !t.DueDate.Before(start) && t.DueDate.Before(end)
	})
}

func (r *TaskRepository) GetUpcoming() []models.Task {
	now := r.now()
	limit := now.Add(UpcomingWindow)
	return r.filter(func(t models.Task) bool {
		return !t.IsCompleted() && t.DueDate.After(now) && !t.DueDate.After(limit)
	})
}

func (r *TaskRepository) GetParentTasks() []models.Task {
	return r.filter(func(t models.Task) bool { return !t.IsSubtask() })
}

func (r *TaskRepository) GetSubtasks(parentID string) []models.Task {
	return r.filter(func(t models.Task) bool { return isChildOf(t, parentID) })
}

func (r *TaskRepository) GetTaskWithSubtasks(id string) (models.TaskWithSubtasks, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.TaskWithSubtasks{}, false
	}

	return models.TaskWithSubtasks{
		Task:     r.tasks[i].Clone(),
		Subtasks: r.filterLocked(func(t models.Task) bool { return isChildOf(t, id) }),
	}, true
}

func (r *TaskRepository) GetSubtaskProgress(parentID string) models.SubtaskProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var progress models.SubtaskProgress
	for _, t := range r.tasks {
		if !isChildOf(t, parentID) {
			continue
		}
		progress.Total++
		if t.IsCompleted() {
			progress.Completed++
		}
	}
	progress.Percentage = Percentage(progress.Completed, progress.Total)
	return progress
}

// GetStats counts parents and subtasks together.
func (r *TaskRepository) GetStats() models.TaskStats {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.TaskStats{Total: len(r.tasks)}
	for _, t := range r.tasks {
		switch t.Status {
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		}
		if isOverdue(t, now) {
			stats.Overdue++
		}
	}
	stats.CompletionRate = Percentage(stats.Completed, stats.Total)
	return stats
}

// Percentage is part/total*100 rounded half up, or 0 when total is 0.
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func (r *TaskRepository) filter(keep func(models.Task) bool) []models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(keep)
}

func (r *TaskRepository) filterLocked(keep func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range r.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (r *TaskRepository) indexOf(id string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func isOverdue(t models.Task, now time.Time) bool {
	return !t.IsCompleted() && t.DueDate.Before(now)
}

func isChildOf(t models.Task, parentID string) bool {
	return t.ParentTaskID != nil && *t.ParentTaskID == parentID
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
