package models

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is the only entity of the task store. A task without ParentTaskID is a
// root task; a task with one is a subtask of that parent.
type Task struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	CategoryID   string     `json:"categoryId" yaml:"categoryId"`
	DueDate      time.Time  `json:"dueDate" yaml:"dueDate"`
	ReminderTime *time.Time `json:"reminderTime,omitempty" yaml:"reminderTime,omitempty"`
	Status       TaskStatus `json:"status" yaml:"status"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"createdAt"`
	ParentTaskID *string    `json:"parentTaskId,omitempty" yaml:"parentTaskId,omitempty"`
}

func (t Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.ReminderTime != nil {
		v := *t.ReminderTime
		c.ReminderTime = &v
	}
	if t.ParentTaskID != nil {
		v := *t.ParentTaskID
		c.ParentTaskID = &v
	}
	return c
}

// TaskInput carries the caller-supplied fields of a new task. An empty Status
// means pending.
type TaskInput struct {
	Title        string
	Description  string
	CategoryID   string
	DueDate      time.Time
	ReminderTime *time.Time
	Status       TaskStatus
	ParentTaskID *string
}

// TaskPatch is a partial update. Nil fields are left untouched. Nullable
// fields carry a Set flag so that an explicit null can clear them.
type TaskPatch struct {
	Title           *string
	Description     *string
	CategoryID      *string
	DueDate         *time.Time
	ReminderTime    *time.Time
	ReminderTimeSet bool
	Status          *TaskStatus
	ParentTaskID    *string
	ParentTaskIDSet bool
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.CategoryID == nil &&
		p.DueDate == nil &&
		!p.ReminderTimeSet && p.ReminderTime == nil &&
		p.Status == nil &&
		!p.ParentTaskIDSet && p.ParentTaskID == nil
}

// Apply merges the fields present in p into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.ReminderTimeSet || p.ReminderTime != nil {
		if p.ReminderTime == nil {
			t.ReminderTime = nil
		} else {
			v := *p.ReminderTime
			t.ReminderTime = &v
		}
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ParentTaskIDSet || p.ParentTaskID != nil {
		if p.ParentTaskID == nil {
			t.ParentTaskID = nil
		} else {
			v := *p.ParentTaskID
			t.ParentTaskID = &v
		}
	}
}

type TaskWithSubtasks struct {
	Task
	Subtasks []Task `json:"subtasks"`
}

type SubtaskProgress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

type TaskStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	InProgress     int `json:"inProgress"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}
