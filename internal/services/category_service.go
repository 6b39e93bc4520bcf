package services

import (
	"context"

	"taskflow/internal/models"

	"go.uber.org/zap"
)

type CategoryRepository interface {
	GetAll() []models.Category
	GetByID(id string) (models.Category, bool)
	Create(ctx context.Context, name, color string) (models.Category, error)
	Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

type TaskCounter interface {
	GetAll() []models.Task
	GetByCategory(categoryID string) []models.Task
}

// CategoryService joins category metadata with the task collection. Deleting
// a category leaves its tasks in place; they keep the dangling id.
type CategoryService struct {
	categories CategoryRepository
	tasks      TaskCounter
	cache      invalidator
	logger     *zap.Logger
}

type invalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
}

func NewCategoryService(categories CategoryRepository, tasks TaskCounter, c invalidator, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, tasks: tasks, cache: c, logger: logger}
}

// ListWithCounts returns every category with the number of tasks, subtasks
// included, that reference it.
func (s *CategoryService) ListWithCounts() []models.CategoryWithCount {
	counts := make(map[string]int)
	for _, task := range s.tasks.GetAll() {
		counts[task.CategoryID]++
	}

	categories := s.categories.GetAll()
	out := make([]models.CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, models.CategoryWithCount{Category: c, TaskCount: counts[c.ID]})
	}
	return out
}

func (s *CategoryService) Get(id string) (models.Category, error) {
	c, ok := s.categories.GetByID(id)
	if !ok {
		return models.Category{}, models.CategoryNotFound(id)
	}
	return c, nil
}

// Tasks lists the tasks filed under id. Tasks may point at categories that
// no longer exist, so an unknown id is not an error.
func (s *CategoryService) Tasks(id string) []models.Task {
	return s.tasks.GetByCategory(id)
}

func (s *CategoryService) Create(ctx context.Context, name, color string) (models.Category, error) {
	c, err := s.categories.Create(ctx, name, color)
	if err != nil {
		return models.Category{}, err
	}
	s.logger.Info("category created", zap.String("category_id", c.ID))
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	c, err := s.categories.Update(ctx, id, patch)
	if err != nil {
		return models.Category{}, err
	}
	s.logger.Info("category updated", zap.String("category_id", id))
	s.invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", zap.String("category_id", id))
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, dashboardPattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
