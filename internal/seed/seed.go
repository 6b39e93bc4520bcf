// Package seed loads initial tasks and categories from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/repositories"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// File is the top-level structure of a seed file:
//
//	categories:
//	  - {id: work, name: Work, color: "#3b82f6"}
//	tasks:
//	  - id: t1
//	    title: Write report
//	    categoryId: work
//	    dueDate: 2024-03-20T17:00:00Z
type File struct {
	Categories []models.Category `yaml:"categories"`
	Tasks      []models.Task     `yaml:"tasks"`
}

// Read parses a seed document. Missing statuses become pending and missing
// creation times become now.
func Read(r io.Reader, now time.Time) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	for i := range f.Tasks {
		t := &f.Tasks[i]
		if t.Status == "" {
			t.Status = models.StatusPending
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func ReadFile(path string, now time.Time) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer fh.Close()
	return Read(fh, now)
}

// Validate reports every problem at once.
func (f *File) Validate() error {
	var errs []error

	categoryIDs := make(map[string]bool, len(f.Categories))
	for i, c := range f.Categories {
		switch {
		case c.ID == "":
			errs = append(errs, fmt.Errorf("categories[%d]: id is required", i))
		case categoryIDs[c.ID]:
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate id %q", i, c.ID))
		}
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: name is required", i))
		}
		categoryIDs[c.ID] = true
	}

	taskIDs := make(map[string]bool, len(f.Tasks))
	for i, t := range f.Tasks {
		switch {
		case t.ID == "":
			errs = append(errs, fmt.Errorf("tasks[%d]: id is required", i))
		case taskIDs[t.ID]:
			errs = append(errs, fmt.Errorf("tasks[%d]: duplicate id %q", i, t.ID))
		}
		taskIDs[t.ID] = true

		if t.Title == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: title is required", i))
		}
		if t.CategoryID == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: categoryId is required", i))
		}
		if t.DueDate.IsZero() {
			errs = append(errs, fmt.Errorf("tasks[%d]: dueDate is required", i))
		}
		if !t.Status.IsValid() {
			errs = append(errs, fmt.Errorf("tasks[%d]: invalid status %q", i, t.Status))
		}
	}

	return errors.Join(errs...)
}

// Apply overwrites the stored categories and tasks with the seed contents in
// one transaction; on failure neither table changes.
func (f *File) Apply(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repositories.NewGormCategoryStore(tx).ReplaceCategories(ctx, f.Categories); err != nil {
			return fmt.Errorf("seeding categories: %w", err)
		}
		if err := repositories.NewGormTaskStore(tx).ReplaceTasks(ctx, f.Tasks); err != nil {
			return fmt.Errorf("seeding tasks: %w", err)
		}
		return nil
	})
}
