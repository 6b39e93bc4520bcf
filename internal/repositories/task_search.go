package repositories

import (
	"slices"
	"strings"

	"taskflow/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortField string

const (
	SortByDueDate   SortField = "dueDate"
	SortByTitle     SortField = "title"
	SortByStatus    SortField = "status"
	SortByCreatedAt SortField = "createdAt"
)

func (f SortField) IsValid() bool {
	switch f {
	case "", SortByDueDate, SortByTitle, SortByStatus, SortByCreatedAt:
		return true
	}
	return false
}

// TaskFilter drives Search. Zero values mean the criterion is not applied.
type TaskFilter struct {
	Search     string
	CategoryID string
	Status     models.TaskStatus
	SortBy     SortField
	Limit      int
}

// Search lists root tasks only, the way the task list view shows them:
// subtasks are reached through their parent.
func (r *TaskRepository) Search(filter TaskFilter) []models.Task {
	term := strings.ToLower(strings.TrimSpace(filter.Search))

	tasks := r.filter(func(t models.Task) bool {
		if t.IsSubtask() {
			return false
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
		if filter.CategoryID != "" && t.CategoryID != filter.CategoryID {
			return false
		}
		if filter.Status != "" && t.Status != filter.Status {
			return false
		}
		return true
	})

	sortTasks(tasks, filter.SortBy)

	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks
}

func sortTasks(tasks []models.Task, by SortField) {
	switch by {
	case SortByDueDate, "":
		slices.SortStableFunc(tasks, func(a, b models.Task) int {
			return a.DueDate.Compare(b.DueDate)
		})
	case SortByTitle:
		c := collate.New(language.English)
		slices.SortStableFunc(tasks, func(a, b models.Task) int {
			return c.CompareString(a.Title, b.Title)
		})
	case SortByStatus:
		c := collate.New(language.English)
		slices.SortStableFunc(tasks, func(a, b models.Task) int {
			return c.CompareString(string(a.Status), string(b.Status))
		})
	case SortByCreatedAt:
		slices.SortStableFunc(tasks, func(a, b models.Task) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}
