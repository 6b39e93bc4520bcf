package services

import (
	"context"
	"errors"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/models"

	"go.uber.org/zap"
)

const dashboardKey = "dashboard:summary"

type Dashboard struct {
	Stats       models.TaskStats           `json:"stats"`
	DueToday    []models.Task              `json:"dueToday"`
	Overdue     []models.Task              `json:"overdue"`
	Upcoming    []models.Task              `json:"upcoming"`
	Categories  []models.CategoryWithCount `json:"categories"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

type DashboardTasks interface {
	GetStats() models.TaskStats
	GetDueToday() []models.Task
	GetOverdue() []models.Task
	GetUpcoming() []models.Task
}

// DashboardService builds the summary view. The payload is cached for ttl;
// task and category writes drop it through DeletePattern("dashboard:*").
type DashboardService struct {
	tasks      DashboardTasks
	categories *CategoryService
	cache      cache.Cache
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewDashboardService(tasks DashboardTasks, categories *CategoryService, c cache.Cache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		tasks:      tasks,
		categories: categories,
		cache:      c,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *DashboardService) Get(ctx context.Context) Dashboard {
	if s.cache != nil && s.ttl > 0 {
		var cached Dashboard
		err := s.cache.Get(ctx, dashboardKey, &cached)
		if err == nil {
			return cached
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	d := s.build()

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, dashboardKey, d, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return d
}

func (s *DashboardService) build() Dashboard {
	d := Dashboard{
		Stats:       s.tasks.GetStats(),
		DueToday:    s.tasks.GetDueToday(),
		Overdue:     s.tasks.GetOverdue(),
		Upcoming:    s.tasks.GetUpcoming(),
		GeneratedAt: s.now().UTC(),
	}
	if s.categories != nil {
		d.Categories = s.categories.ListWithCounts()
	}
	return d
}
