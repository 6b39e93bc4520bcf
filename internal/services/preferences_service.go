package services

import (
	"context"

	"taskflow/internal/models"

	"go.uber.org/zap"
)

type PreferencesRepository interface {
	Get() models.Preferences
	Update(ctx context.Context, patch models.PreferencesPatch) (models.Preferences, error)
	Reset(ctx context.Context) (models.Preferences, error)
}

type ReminderRescheduler interface {
	RescheduleReminders(ctx context.Context) int
}

// PreferencesService re-queues reminders whenever a change could move
// a derived reminder time.
type PreferencesService struct {
	repo        PreferencesRepository
	rescheduler ReminderRescheduler
	logger      *zap.Logger
}

func NewPreferencesService(repo PreferencesRepository, rescheduler ReminderRescheduler, logger *zap.Logger) *PreferencesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesService{repo: repo, rescheduler: rescheduler, logger: logger}
}

func (s *PreferencesService) Get() models.Preferences {
	return s.repo.Get()
}

func (s *PreferencesService) Update(ctx context.Context, patch models.PreferencesPatch) (models.Preferences, error) {
	before := s.repo.Get()
	after, err := s.repo.Update(ctx, patch)
	if err != nil {
		return after, err
	}
	s.afterChange(ctx, before, after)
	return after, nil
}

func (s *PreferencesService) Reset(ctx context.Context) (models.Preferences, error) {
	before := s.repo.Get()
	after, err := s.repo.Reset(ctx)
	if err != nil {
		return after, err
	}
	s.afterChange(ctx, before, after)
	return after, nil
}

func (s *PreferencesService) afterChange(ctx context.Context, before, after models.Preferences) {
	s.logger.Info("preferences updated")

	if s.rescheduler == nil {
		return
	}
	if before.ReminderOffset == after.ReminderOffset && before.NotificationsEnabled == after.NotificationsEnabled {
		return
	}
	n := s.rescheduler.RescheduleReminders(ctx)
	s.logger.Info("reminders rescheduled", zap.Int("count", n))
}
