package repositories

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/models"

	"gorm.io/gorm"
)

// taskRecord is the row layout of the tasks table. Column names are the
// storage spelling of the canonical camelCase JSON fields.
type taskRecord struct {
	ID           string     `gorm:"primaryKey;size:64"`
	Position     int64      `gorm:"not null;index"`
	Title        string     `gorm:"not null"`
	Description  string     `gorm:"type:text"`
	CategoryID   string     `gorm:"column:category_id;size:64;index"`
	DueDate      time.Time  `gorm:"column:due_date;not null"`
	ReminderTime *time.Time `gorm:"column:reminder_time"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	ParentTaskID *string    `gorm:"column:parent_task_id;size:64;index"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

func toTaskRecord(t models.Task) taskRecord {
	return taskRecord{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		CategoryID:   t.CategoryID,
		DueDate:      t.DueDate,
		ReminderTime: t.ReminderTime,
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt,
		ParentTaskID: t.ParentTaskID,
	}
}

func (rec taskRecord) toModel() models.Task {
	return models.Task{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		CategoryID:   rec.CategoryID,
		DueDate:      rec.DueDate,
		ReminderTime: rec.ReminderTime,
		Status:       models.TaskStatus(rec.Status),
		CreatedAt:    rec.CreatedAt,
		ParentTaskID: rec.ParentTaskID,
	}
}

// GormTaskStore persists tasks in a relational database. Rows carry an
// insertion position so that storage order survives a reload.
type GormTaskStore struct {
	db *gorm.DB
}

func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

func (s *GormTaskStore) LoadTasks(ctx context.Context) ([]models.Task, error) {
	var records []taskRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, rec.toModel())
	}
	return tasks, nil
}

func (s *GormTaskStore) InsertTask(ctx context.Context, task models.Task) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&taskRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("reading last position: %w", err)
		}

		rec := toTaskRecord(task)
		rec.Position = last + 1
		return tx.Create(&rec).Error
	})
}

func (s *GormTaskStore) UpdateTask(ctx context.Context, task models.Task) error {
	rec := toTaskRecord(task)
	res := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":          rec.Title,
			"description":    rec.Description,
			"category_id":    rec.CategoryID,
			"due_date":       rec.DueDate,
			"reminder_time":  rec.ReminderTime,
			"status":         rec.Status,
			"parent_task_id": rec.ParentTaskID,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.TaskNotFound(task.ID)
	}
	return nil
}

func (s *GormTaskStore) DeleteTask(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&taskRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.TaskNotFound(id)
	}
	return nil
}

// ReplaceTasks wipes the table and inserts tasks in order. Used by seeding.
func (s *GormTaskStore) ReplaceTasks(ctx context.Context, tasks []models.Task) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&taskRecord{}).Error; err != nil {
			return err
		}
		for i, t := range tasks {
			rec := toTaskRecord(t)
			rec.Position = int64(i + 1)
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("inserting task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

var _ TaskStore = (*GormTaskStore)(nil)
