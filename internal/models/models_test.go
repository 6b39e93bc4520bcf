package models_test

import (
	"errors"
	"testing"
	"time"

	"taskflow/internal/models"
)

func TestTaskStatus_IsValid(t *testing.T) {
	for _, s := range []models.TaskStatus{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		if !s.IsValid() {
			t.Errorf("Expected status %q to be valid", s)
		}
	}
	for _, s := range []models.TaskStatus{"", "done", "in_progress", "Pending"} {
		if s.IsValid() {
			t.Errorf("Expected status %q to be invalid", s)
		}
	}
}

func TestTask_CloneIsIndependent(t *testing.T) {
	reminder := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	parent := "p1"
	task := models.Task{ID: "t1", ReminderTime: &reminder, ParentTaskID: &parent}

	c := task.Clone()
	*c.ReminderTime = reminder.Add(time.Hour)
	*c.ParentTaskID = "p2"

	if !task.ReminderTime.Equal(reminder) {
		t.Errorf("Expected original reminder %v, got %v", reminder, *task.ReminderTime)
	}
	if *task.ParentTaskID != "p1" {
		t.Errorf("Expected original parent p1, got %s", *task.ParentTaskID)
	}
	if !c.IsSubtask() {
		t.Error("Expected clone to remain a subtask")
	}
}

func TestTaskPatch_Apply(t *testing.T) {
	reminder := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	parent := "p1"
	task := models.Task{
		ID:           "t1",
		Title:        "Old",
		Description:  "keep",
		Status:       models.StatusPending,
		ReminderTime: &reminder,
		ParentTaskID: &parent,
	}

	title := "New"
	status := models.StatusCompleted
	models.TaskPatch{
		Title:           &title,
		Status:          &status,
		ReminderTimeSet: true,
	}.Apply(&task)

	if task.Title != "New" || task.Status != models.StatusCompleted {
		t.Errorf("Expected patched title and status, got %q %q", task.Title, task.Status)
	}
	if task.Description != "keep" {
		t.Errorf("Expected description to be untouched, got %q", task.Description)
	}
	if task.ReminderTime != nil {
		t.Error("Expected explicit null to clear reminder time")
	}
	if task.ParentTaskID == nil || *task.ParentTaskID != "p1" {
		t.Error("Expected absent parent to be left alone")
	}
	if !task.IsCompleted() {
		t.Error("Expected task to be completed")
	}
}

func TestTaskPatch_IsEmpty(t *testing.T) {
	if !(models.TaskPatch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
	if (models.TaskPatch{ParentTaskIDSet: true}).IsEmpty() {
		t.Error("Expected clearing the parent to count as a change")
	}
}

func TestPreferencesPatch_Apply(t *testing.T) {
	prefs := models.DefaultPreferences()

	off := false
	offset := 15
	models.PreferencesPatch{NotificationsEnabled: &off, ReminderOffset: &offset}.Apply(&prefs)

	if prefs.NotificationsEnabled || prefs.ReminderOffset != 15 {
		t.Errorf("Unexpected preferences after patch: %+v", prefs)
	}
	if prefs.Theme != models.DefaultPreferences().Theme {
		t.Errorf("Expected theme to be untouched, got %q", prefs.Theme)
	}
}

func TestNotFoundError(t *testing.T) {
	err := models.TaskNotFound("t1")
	if !errors.Is(err, models.ErrTaskNotFound) {
		t.Error("Expected task not found to match ErrTaskNotFound")
	}
	if errors.Is(err, models.ErrCategoryNotFound) {
		t.Error("Expected task not found not to match ErrCategoryNotFound")
	}

	var nf *models.NotFoundError
	if !errors.As(models.CategoryNotFound("c1"), &nf) || nf.ID != "c1" {
		t.Errorf("Expected NotFoundError for c1, got %v", nf)
	}
}
