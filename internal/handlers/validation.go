package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"taskflow/internal/models"
	"taskflow/pkg/apierrors"
)

// payloadError carries the message key of a rejected request body.
type payloadError struct {
	msgKey string
}

func (e *payloadError) Error() string {
	return e.msgKey
}

func invalid(msgKey string) error {
	return &payloadError{msgKey: msgKey}
}

func messageKey(err error, fallback string) string {
	var pe *payloadError
	if errors.As(err, &pe) {
		return pe.msgKey
	}
	return fallback
}

type createTaskRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	CategoryID   string             `json:"categoryId"`
	DueDate      *time.Time         `json:"dueDate"`
	ReminderTime *time.Time         `json:"reminderTime"`
	Status       *models.TaskStatus `json:"status"`
	ParentTaskID *string            `json:"parentTaskId"`
}

type updateTaskRequest struct {
	Title        *string            `json:"title"`
	Description  *string            `json:"description"`
	CategoryID   *string            `json:"categoryId"`
	DueDate      *time.Time         `json:"dueDate"`
	ReminderTime *time.Time         `json:"reminderTime"`
	Status       *models.TaskStatus `json:"status"`
	ParentTaskID *string            `json:"parentTaskId"`
}

var taskUpdateFields = []string{"title", "description", "categoryId", "dueDate", "reminderTime", "status", "parentTaskId"}

func buildTaskInput(req createTaskRequest, raw map[string]json.RawMessage) (models.TaskInput, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.TaskInput{}, invalid(apierrors.MsgTitleRequired)
	}
	categoryID := strings.TrimSpace(req.CategoryID)
	if categoryID == "" {
		return models.TaskInput{}, invalid(apierrors.MsgCategoryRequired)
	}
	if req.DueDate == nil {
		return models.TaskInput{}, invalid(apierrors.MsgDueDateRequired)
	}

	var status models.TaskStatus
	if hasJSONField(raw, "status") {
		if req.Status == nil || !req.Status.IsValid() {
			return models.TaskInput{}, invalid(apierrors.MsgInvalidStatus)
		}
		status = *req.Status
	}

	return models.TaskInput{
		Title:        title,
		Description:  req.Description,
		CategoryID:   categoryID,
		DueDate:      *req.DueDate,
		ReminderTime: req.ReminderTime,
		Status:       status,
		ParentTaskID: req.ParentTaskID,
	}, nil
}

// buildTaskPatch distinguishes an absent field from an explicit null:
// reminderTime and parentTaskId may be cleared, the rest may not.
func buildTaskPatch(req updateTaskRequest, raw map[string]json.RawMessage) (models.TaskPatch, error) {
	if !hasAnyField(raw, taskUpdateFields) {
		return models.TaskPatch{}, invalid(apierrors.MsgEmptyUpdate)
	}

	patch := models.TaskPatch{
		Description:     req.Description,
		DueDate:         req.DueDate,
		ReminderTime:    req.ReminderTime,
		ReminderTimeSet: hasJSONField(raw, "reminderTime"),
		ParentTaskID:    req.ParentTaskID,
		ParentTaskIDSet: hasJSONField(raw, "parentTaskId"),
	}

	if hasJSONField(raw, "title") {
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			return models.TaskPatch{}, invalid(apierrors.MsgTitleRequired)
		}
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if hasJSONField(raw, "categoryId") {
		if req.CategoryID == nil || strings.TrimSpace(*req.CategoryID) == "" {
			return models.TaskPatch{}, invalid(apierrors.MsgCategoryRequired)
		}
		categoryID := strings.TrimSpace(*req.CategoryID)
		patch.CategoryID = &categoryID
	}
	if hasJSONField(raw, "dueDate") && req.DueDate == nil {
		return models.TaskPatch{}, invalid(apierrors.MsgDueDateRequired)
	}
	if hasJSONField(raw, "description") && req.Description == nil {
		empty := ""
		patch.Description = &empty
	}
	if hasJSONField(raw, "status") {
		if req.Status == nil || !req.Status.IsValid() {
			return models.TaskPatch{}, invalid(apierrors.MsgInvalidStatus)
		}
		patch.Status = req.Status
	}

	return patch, nil
}

type categoryRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func buildCategoryPatch(req categoryRequest, raw map[string]json.RawMessage) (models.CategoryPatch, error) {
	if !hasAnyField(raw, []string{"name", "color"}) {
		return models.CategoryPatch{}, invalid(apierrors.MsgEmptyUpdate)
	}
	if hasJSONField(raw, "name") && (req.Name == nil || strings.TrimSpace(*req.Name) == "") {
		return models.CategoryPatch{}, invalid(apierrors.MsgInvalidCategoryPayload)
	}
	if hasJSONField(raw, "color") && req.Color == nil {
		return models.CategoryPatch{}, invalid(apierrors.MsgInvalidCategoryPayload)
	}

	patch := models.CategoryPatch{Color: req.Color}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	return patch, nil
}

var preferenceFields = []string{"defaultView", "sortOrder", "theme", "showCompletedTasks", "notificationsEnabled", "reminderOffset"}

func buildPreferencesPatch(req models.PreferencesPatch, raw map[string]json.RawMessage) (models.PreferencesPatch, error) {
	if !hasAnyField(raw, preferenceFields) {
		return models.PreferencesPatch{}, invalid(apierrors.MsgEmptyUpdate)
	}
	for _, f := range preferenceFields {
		if v, ok := raw[f]; ok && isJSONNull(v) {
			return models.PreferencesPatch{}, invalid(apierrors.MsgInvalidPreferencesPayload)
		}
	}
	if req.ReminderOffset != nil && *req.ReminderOffset < 0 {
		return models.PreferencesPatch{}, invalid(apierrors.MsgInvalidPreferencesPayload)
	}
	return req, nil
}

func hasAnyField(raw map[string]json.RawMessage, fields []string) bool {
	for _, f := range fields {
		if hasJSONField(raw, f) {
			return true
		}
	}
	return false
}

func hasJSONField(raw map[string]json.RawMessage, field string) bool {
	_, ok := raw[field]
	return ok
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
