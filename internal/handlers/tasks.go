package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/internal/repositories"
	"taskflow/internal/services"
	"taskflow/pkg/apierrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	lang := middleware.GetLang(c)

	filter := repositories.TaskFilter{
		Search:     c.Query("search"),
		CategoryID: c.Query("categoryId"),
		Status:     models.TaskStatus(c.Query("status")),
		SortBy:     repositories.SortField(c.Query("sortBy")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidStatus, lang)
		return
	}
	if !filter.SortBy.IsValid() {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidQuery, lang)
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidQuery, lang)
			return
		}
		filter.Limit = limit
	}

	c.JSON(http.StatusOK, h.taskService.ListTasks(filter))
}

// GetAllTasks covers parents and subtasks alike. status and categoryId narrow
// the result; a categoryId with no matching category yields an empty list.
func (h *TaskHandler) GetAllTasks(c *gin.Context) {
	status := models.TaskStatus(c.Query("status"))
	categoryID := c.Query("categoryId")

	var tasks []models.Task
	switch {
	case status != "":
		if !status.IsValid() {
			abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidStatus, middleware.GetLang(c))
			return
		}
		tasks = h.taskService.GetByStatus(status)
		if categoryID != "" {
			tasks = slices.DeleteFunc(tasks, func(t models.Task) bool { return t.CategoryID != categoryID })
		}
	case categoryID != "":
		tasks = h.taskService.GetByCategory(categoryID)
	default:
		tasks = h.taskService.GetAllTasks()
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetOverdue(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskService.GetOverdue())
}

func (h *TaskHandler) GetDueToday(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskService.GetDueToday())
}

func (h *TaskHandler) GetUpcoming(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskService.GetUpcoming())
}

func (h *TaskHandler) GetParentTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskService.GetParentTasks())
}

func (h *TaskHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.taskService.GetStats())
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id := c.Param("id")

	if c.Query("withSubtasks") == "true" {
		task, err := h.taskService.GetTaskWithSubtasks(id)
		if err != nil {
			handleTaskError(c, err, apierrors.MsgInternalError)
			return
		}
		c.JSON(http.StatusOK, task)
		return
	}

	task, err := h.taskService.GetTask(id)
	if err != nil {
		handleTaskError(c, err, apierrors.MsgInternalError)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req createTaskRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidTaskPayload, lang)
		return
	}

	input, err := buildTaskInput(req, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, messageKey(err, apierrors.MsgInvalidTaskPayload), lang)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), input)
	if err != nil {
		handleTaskError(c, err, apierrors.MsgFailCreateTask)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req updateTaskRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidTaskPayload, lang)
		return
	}

	patch, err := buildTaskPatch(req, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, messageKey(err, apierrors.MsgInvalidTaskPayload), lang)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		handleTaskError(c, err, apierrors.MsgFailUpdateTask)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		handleTaskError(c, err, apierrors.MsgFailDeleteTask)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) GetSubtasks(c *gin.Context) {
	subtasks, err := h.taskService.GetSubtasks(c.Param("id"))
	if err != nil {
		handleTaskError(c, err, apierrors.MsgInternalError)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req createTaskRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidTaskPayload, lang)
		return
	}

	input, err := buildTaskInput(req, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, messageKey(err, apierrors.MsgInvalidTaskPayload), lang)
		return
	}

	task, err := h.taskService.CreateSubtask(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			abortWithError(c, http.StatusNotFound, apierrors.MsgParentTaskNotFound, lang)
			return
		}
		handleTaskError(c, err, apierrors.MsgFailCreateTask)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetSubtaskProgress(c *gin.Context) {
	progress, err := h.taskService.GetSubtaskProgress(c.Param("id"))
	if err != nil {
		handleTaskError(c, err, apierrors.MsgInternalError)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// bindJSON decodes the body into dest and also returns its top-level keys,
// which the validators use to tell an omitted field from an explicit null.
func bindJSON(c *gin.Context, dest interface{}) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return nil, err
	}
	return raw, nil
}

func abortWithError(c *gin.Context, code int, msgKey, lang string) {
	c.AbortWithStatusJSON(code, apierrors.CreateError(code, msgKey, lang))
}

func handleTaskError(c *gin.Context, err error, failKey string) {
	lang := middleware.GetLang(c)

	switch {
	case errors.Is(err, models.ErrTaskNotFound):
		abortWithError(c, http.StatusNotFound, apierrors.MsgTaskNotFound, lang)
	case errors.Is(err, models.ErrCategoryNotFound):
		abortWithError(c, http.StatusNotFound, apierrors.MsgCategoryNotFound, lang)
	default:
		zap.L().Error("task request failed", zap.String("path", c.FullPath()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, failKey, lang)
	}
}
