package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/models"

	"gorm.io/gorm"
)

type categoryRecord struct {
	ID       string `gorm:"primaryKey;size:64"`
	Position int64  `gorm:"not null;index"`
	Name     string `gorm:"not null"`
	Color    string `gorm:"size:16"`
}

func (categoryRecord) TableName() string {
	return "categories"
}

// preferencesRecord is a single-row table keyed by a constant id.
type preferencesRecord struct {
	ID                   uint   `gorm:"primaryKey"`
	DefaultView          string `gorm:"not null"`
	SortOrder            string `gorm:"not null"`
	Theme                string `gorm:"not null"`
	ShowCompletedTasks   bool
	NotificationsEnabled bool
	ReminderOffset       int
	UpdatedAt            time.Time
}

func (preferencesRecord) TableName() string {
	return "user_preferences"
}

const preferencesRowID = 1

// AutoMigrate creates or updates every table the gorm stores use.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&taskRecord{}, &categoryRecord{}, &preferencesRecord{})
}

type GormCategoryStore struct {
	db *gorm.DB
}

func NewGormCategoryStore(db *gorm.DB) *GormCategoryStore {
	return &GormCategoryStore{db: db}
}

func (s *GormCategoryStore) LoadCategories(ctx context.Context) ([]models.Category, error) {
	var records []categoryRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(records))
	for _, rec := range records {
		categories = append(categories, models.Category{ID: rec.ID, Name: rec.Name, Color: rec.Color})
	}
	return categories, nil
}

func (s *GormCategoryStore) SaveCategory(ctx context.Context, category models.Category) error {
	db := s.db.WithContext(ctx)

	res := db.Model(&categoryRecord{}).
		Where("id = ?", category.ID).
		Updates(map[string]interface{}{"name": category.Name, "color": category.Color})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&categoryRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("reading last position: %w", err)
		}
		return tx.Create(&categoryRecord{
			ID:       category.ID,
			Position: last + 1,
			Name:     category.Name,
			Color:    category.Color,
		}).Error
	})
}

func (s *GormCategoryStore) DeleteCategory(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&categoryRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.CategoryNotFound(id)
	}
	return nil
}

type GormPreferencesStore struct {
	db *gorm.DB
}

func NewGormPreferencesStore(db *gorm.DB) *GormPreferencesStore {
	return &GormPreferencesStore{db: db}
}

// LoadPreferences reports found == false when nothing has been saved yet.
func (s *GormPreferencesStore) LoadPreferences(ctx context.Context) (models.Preferences, bool, error) {
	var rec preferencesRecord
	err := s.db.WithContext(ctx).First(&rec, preferencesRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Preferences{}, false, nil
	}
	if err != nil {
		return models.Preferences{}, false, err
	}

	return models.Preferences{
		DefaultView:          rec.DefaultView,
		SortOrder:            rec.SortOrder,
		Theme:                rec.Theme,
		ShowCompletedTasks:   rec.ShowCompletedTasks,
		NotificationsEnabled: rec.NotificationsEnabled,
		ReminderOffset:       rec.ReminderOffset,
	}, true, nil
}

func (s *GormPreferencesStore) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	rec := preferencesRecord{
		ID:                   preferencesRowID,
		DefaultView:          prefs.DefaultView,
		SortOrder:            prefs.SortOrder,
		Theme:                prefs.Theme,
		ShowCompletedTasks:   prefs.ShowCompletedTasks,
		NotificationsEnabled: prefs.NotificationsEnabled,
		ReminderOffset:       prefs.ReminderOffset,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// ReplaceCategories wipes the table and inserts categories in order.
func (s *GormCategoryStore) ReplaceCategories(ctx context.Context, categories []models.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&categoryRecord{}).Error; err != nil {
			return err
		}
		for i, c := range categories {
			rec := categoryRecord{
				ID:       c.ID,
				Position: int64(i + 1),
				Name:     c.Name,
				Color:    c.Color,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var _ CategoryStore = (*GormCategoryStore)(nil)
