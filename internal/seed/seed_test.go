package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

const sample = `
categories:
  - {id: work, name: Work, color: "#3b82f6"}
  - {id: home, name: Home, color: "#22c55e"}
tasks:
  - id: t1
    title: Write report
    categoryId: work
    dueDate: 2024-03-20T17:00:00Z
    status: in-progress
  - id: t2
    title: Outline
    categoryId: work
    dueDate: 2024-03-18T09:00:00Z
    parentTaskId: t1
  - id: t3
    title: Groceries
    categoryId: home
    dueDate: 2024-03-15T18:00:00Z
    reminderTime: 2024-03-15T17:00:00Z
    createdAt: 2024-03-01T08:00:00Z
`

func TestRead(t *testing.T) {
	f, err := Read(strings.NewReader(sample), now)
	require.NoError(t, err)

	require.Len(t, f.Categories, 2)
	require.Len(t, f.Tasks, 3)

	assert.Equal(t, models.StatusInProgress, f.Tasks[0].Status)
	assert.Equal(t, models.StatusPending, f.Tasks[1].Status)
	assert.Equal(t, now, f.Tasks[1].CreatedAt)
	require.NotNil(t, f.Tasks[1].ParentTaskID)
	assert.Equal(t, "t1", *f.Tasks[1].ParentTaskID)
	require.NotNil(t, f.Tasks[2].ReminderTime)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), f.Tasks[2].CreatedAt)
}

func TestRead_Empty(t *testing.T) {
	f, err := Read(strings.NewReader(""), now)
	require.NoError(t, err)
	assert.Empty(t, f.Tasks)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "tasks:\n  - id: a\n    priority: 3\n", "priority"},
		{"missing title", "tasks:\n  - {id: a, categoryId: c, dueDate: 2024-03-20T17:00:00Z}\n", "title is required"},
		{"duplicate id", "tasks:\n  - {id: a, title: x, categoryId: c, dueDate: 2024-03-20T17:00:00Z}\n  - {id: a, title: y, categoryId: c, dueDate: 2024-03-20T17:00:00Z}\n", "duplicate id"},
		{"bad status", "tasks:\n  - {id: a, title: x, categoryId: c, dueDate: 2024-03-20T17:00:00Z, status: done}\n", "invalid status"},
		{"category without name", "categories:\n  - {id: c}\n", "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), now)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApply(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.AutoMigrate(db))

	f, err := Read(strings.NewReader(sample), now)
	require.NoError(t, err)

	tasks := repositories.NewGormTaskStore(db)
	categories := repositories.NewGormCategoryStore(db)
	ctx := context.Background()

	require.NoError(t, f.Apply(ctx, db))
	// applying twice replaces rather than duplicates
	require.NoError(t, f.Apply(ctx, db))

	loaded, err := tasks.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{loaded[0].ID, loaded[1].ID, loaded[2].ID})

	cats, err := categories.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestApply_RollsBackOnTaskFailure(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.AutoMigrate(db))

	ctx := context.Background()
	original, err := Read(strings.NewReader(sample), now)
	require.NoError(t, err)
	require.NoError(t, original.Apply(ctx, db))

	replacement := &File{
		Categories: []models.Category{{ID: "errands", Name: "Errands", Color: "#f97316"}},
		Tasks:      []models.Task{{ID: "x1", Title: "Buy milk", CategoryID: "errands", DueDate: now, Status: models.StatusPending, CreatedAt: now}},
	}
	require.NoError(t, db.Migrator().DropTable("tasks"))

	err = replacement.Apply(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seeding tasks")

	cats, err := repositories.NewGormCategoryStore(db).LoadCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2, "categories are untouched when the task insert fails")
	assert.Equal(t, "work", cats[0].ID)
}
