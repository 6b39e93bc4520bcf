package repositories

import (
	"context"
	"fmt"
	"sync"

	"taskflow/internal/models"
)

type PreferencesStore interface {
	LoadPreferences(ctx context.Context) (models.Preferences, bool, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error
}

// PreferencesRepository keeps the single user's settings. Until something is
// saved it answers with models.DefaultPreferences.
type PreferencesRepository struct {
	mu    sync.RWMutex
	prefs models.Preferences
	store PreferencesStore
}

func NewPreferencesRepository(store PreferencesStore) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: models.DefaultPreferences(),
		store: store,
	}
}

func (r *PreferencesRepository) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	prefs, found, err := r.store.LoadPreferences(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	if !found {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs = prefs
	return nil
}

func (r *PreferencesRepository) Get() models.Preferences {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefs
}

func (r *PreferencesRepository) Update(ctx context.Context, patch models.PreferencesPatch) (models.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := r.prefs
	patch.Apply(&updated)
	return r.saveLocked(ctx, updated)
}

func (r *PreferencesRepository) Reset(ctx context.Context) (models.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveLocked(ctx, models.DefaultPreferences())
}

func (r *PreferencesRepository) saveLocked(ctx context.Context, prefs models.Preferences) (models.Preferences, error) {
	if r.store != nil {
		if err := r.store.SavePreferences(ctx, prefs); err != nil {
			return r.prefs, fmt.Errorf("saving preferences: %w", err)
		}
	}
	r.prefs = prefs
	return prefs, nil
}

var _ PreferencesStore = (*GormPreferencesStore)(nil)
