package services

import (
	"context"
	"errors"

	"taskflow/internal/cache"
	"taskflow/internal/models"
	"taskflow/internal/repositories"

	"go.uber.org/zap"
)

// TaskRepository is the task collection the services read and write.
// *repositories.TaskRepository satisfies it.
type TaskRepository interface {
	GetAll() []models.Task
	GetByID(id string) (models.Task, bool)
	Create(ctx context.Context, input models.TaskInput) (models.Task, error)
	CreateSubtask(ctx context.Context, parentID string, input models.TaskInput) (models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByCategory(categoryID string) []models.Task
	GetByStatus(status models.TaskStatus) []models.Task
	GetOverdue() []models.Task
	GetDueToday() []models.Task
	GetUpcoming() []models.Task
	GetParentTasks() []models.Task
	GetSubtasks(parentID string) []models.Task
	GetTaskWithSubtasks(id string) (models.TaskWithSubtasks, bool)
	GetSubtaskProgress(parentID string) models.SubtaskProgress
	GetStats() models.TaskStats
	Search(filter repositories.TaskFilter) []models.Task
}

type TaskService interface {
	ListTasks(filter repositories.TaskFilter) []models.Task
	GetAllTasks() []models.Task
	GetTask(id string) (models.Task, error)
	GetTaskWithSubtasks(id string) (models.TaskWithSubtasks, error)
	CreateTask(ctx context.Context, input models.TaskInput) (models.Task, error)
	CreateSubtask(ctx context.Context, parentID string, input models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetByCategory(categoryID string) []models.Task
	GetByStatus(status models.TaskStatus) []models.Task
	GetOverdue() []models.Task
	GetDueToday() []models.Task
	GetUpcoming() []models.Task
	GetParentTasks() []models.Task
	GetSubtasks(parentID string) ([]models.Task, error)
	GetSubtaskProgress(parentID string) (models.SubtaskProgress, error)
	GetStats() models.TaskStats
	RescheduleReminders(ctx context.Context) int
}

const dashboardPattern = "dashboard:*"

// DefaultTaskService wraps the repository with the side effects of a
// mutation: dashboard cache invalidation and reminder scheduling. Neither
// side effect can fail the mutation itself; problems are logged.
type DefaultTaskService struct {
	repo      TaskRepository
	cache     cache.Cache
	reminders *ReminderScheduler
	logger    *zap.Logger
}

type TaskServiceOption func(*DefaultTaskService)

func WithCache(c cache.Cache) TaskServiceOption {
	return func(s *DefaultTaskService) { s.cache = c }
}

func WithReminders(r *ReminderScheduler) TaskServiceOption {
	return func(s *DefaultTaskService) { s.reminders = r }
}

func WithTaskLogger(l *zap.Logger) TaskServiceOption {
	return func(s *DefaultTaskService) { s.logger = l }
}

func NewTaskService(repo TaskRepository, opts ...TaskServiceOption) *DefaultTaskService {
	s := &DefaultTaskService{repo: repo, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DefaultTaskService) ListTasks(filter repositories.TaskFilter) []models.Task {
	return s.repo.Search(filter)
}

func (s *DefaultTaskService) GetAllTasks() []models.Task {
	return s.repo.GetAll()
}

func (s *DefaultTaskService) GetTask(id string) (models.Task, error) {
	task, ok := s.repo.GetByID(id)
	if !ok {
		return models.Task{}, models.TaskNotFound(id)
	}
	return task, nil
}

func (s *DefaultTaskService) GetTaskWithSubtasks(id string) (models.TaskWithSubtasks, error) {
	task, ok := s.repo.GetTaskWithSubtasks(id)
	if !ok {
		return models.TaskWithSubtasks{}, models.TaskNotFound(id)
	}
	return task, nil
}

func (s *DefaultTaskService) CreateTask(ctx context.Context, input models.TaskInput) (models.Task, error) {
	task, err := s.repo.Create(ctx, input)
	if err != nil {
		return models.Task{}, err
	}

	s.logger.Info("task created", zap.String("task_id", task.ID), zap.Bool("subtask", task.IsSubtask()))
	s.afterWrite(ctx, task)
	return task, nil
}

func (s *DefaultTaskService) CreateSubtask(ctx context.Context, parentID string, input models.TaskInput) (models.Task, error) {
	task, err := s.repo.CreateSubtask(ctx, parentID, input)
	if err != nil {
		return models.Task{}, err
	}

	s.logger.Info("subtask created", zap.String("task_id", task.ID), zap.String("parent_id", parentID))
	s.afterWrite(ctx, task)
	return task, nil
}

func (s *DefaultTaskService) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	task, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return models.Task{}, err
	}

	s.logger.Info("task updated", zap.String("task_id", id), zap.String("status", string(task.Status)))
	s.afterWrite(ctx, task)
	return task, nil
}

func (s *DefaultTaskService) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("task deleted", zap.String("task_id", id))
	s.invalidateDashboard(ctx)
	return nil
}

func (s *DefaultTaskService) GetByCategory(categoryID string) []models.Task {
	return s.repo.GetByCategory(categoryID)
}

func (s *DefaultTaskService) GetByStatus(status models.TaskStatus) []models.Task {
	return s.repo.GetByStatus(status)
}

func (s *DefaultTaskService) GetOverdue() []models.Task {
	return s.repo.GetOverdue()
}

func (s *DefaultTaskService) GetDueToday() []models.Task {
	return s.repo.GetDueToday()
}

func (s *DefaultTaskService) GetUpcoming() []models.Task {
	return s.repo.GetUpcoming()
}

func (s *DefaultTaskService) GetParentTasks() []models.Task {
	return s.repo.GetParentTasks()
}

// GetSubtasks reports ErrTaskNotFound for an unknown parent so the API can
// tell "no subtasks" from "no such task".
func (s *DefaultTaskService) GetSubtasks(parentID string) ([]models.Task, error) {
	if _, ok := s.repo.GetByID(parentID); !ok {
		return nil, models.TaskNotFound(parentID)
	}
	return s.repo.GetSubtasks(parentID), nil
}

func (s *DefaultTaskService) GetSubtaskProgress(parentID string) (models.SubtaskProgress, error) {
	if _, ok := s.repo.GetByID(parentID); !ok {
		return models.SubtaskProgress{}, models.TaskNotFound(parentID)
	}
	return s.repo.GetSubtaskProgress(parentID), nil
}

func (s *DefaultTaskService) GetStats() models.TaskStats {
	return s.repo.GetStats()
}

// RescheduleReminders enqueues a reminder for every open task. Jobs left
// over from earlier settings are dropped by the reminder handler.
func (s *DefaultTaskService) RescheduleReminders(ctx context.Context) int {
	if s.reminders == nil {
		return 0
	}

	scheduled := 0
	for _, task := range s.repo.GetAll() {
		ok, err := s.reminders.Schedule(ctx, task)
		if err != nil {
			s.logger.Warn("failed to schedule reminder", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		if ok {
			scheduled++
		}
	}
	return scheduled
}

func (s *DefaultTaskService) afterWrite(ctx context.Context, task models.Task) {
	s.invalidateDashboard(ctx)

	if s.reminders == nil {
		return
	}
	if _, err := s.reminders.Schedule(ctx, task); err != nil {
		s.logger.Warn("failed to schedule reminder", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (s *DefaultTaskService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, dashboardPattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	var nf *models.NotFoundError
	return errors.As(err, &nf)
}

var _ TaskService = (*DefaultTaskService)(nil)
