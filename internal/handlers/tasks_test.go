package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/internal/repositories"
	"taskflow/internal/services"
	"taskflow/pkg/apierrors"
	"taskflow/pkg/translator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	router *gin.Engine
	repo   *repositories.TaskRepository
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	taskIDs, catIDs := 0, 0
	repo := repositories.NewTaskRepository(&repositories.TaskRepositoryConfig{
		Clock: func() time.Time { return fixedNow },
		NewID: func() string { taskIDs++; return fmt.Sprintf("task-%d", taskIDs) },
	})
	categories := repositories.NewCategoryRepository(nil, func() string { catIDs++; return fmt.Sprintf("cat-%d", catIDs) }, nil)
	prefs := repositories.NewPreferencesRepository(nil)

	taskService := services.NewTaskService(repo)
	categoryService := services.NewCategoryService(categories, repo, nil, nil)

	router := gin.New()
	router.Use(middleware.LanguageMiddleware())
	handlers.RegisterRoutes(router, handlers.Handlers{
		Tasks:       handlers.NewTaskHandler(taskService),
		Categories:  handlers.NewCategoryHandler(categoryService),
		Preferences: handlers.NewPreferencesHandler(services.NewPreferencesService(prefs, taskService, nil)),
		Dashboard:   handlers.NewDashboardHandler(services.NewDashboardService(repo, categoryService, nil, 0, nil)),
	})
	return &testAPI{router: router, repo: repo}
}

func (a *testAPI) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func taskBody(title string, due time.Time) map[string]interface{} {
	return map[string]interface{}{
		"title":      title,
		"categoryId": "work",
		"dueDate":    due.Format(time.RFC3339),
	}
}

func TestCreateTask(t *testing.T) {
	api := setupAPI(t)

	w := api.do(http.MethodPost, "/api/tasks", taskBody("Write report", fixedNow.Add(48*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)

	task := decode[models.Task](t, w)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.True(t, task.CreatedAt.Equal(fixedNow))
}

func TestCreateTask_Validation(t *testing.T) {
	api := setupAPI(t)
	due := fixedNow.Format(time.RFC3339)

	tests := []struct {
		name    string
		body    interface{}
		wantKey string
	}{
		{"malformed json", `{"title":`, apierrors.MsgInvalidTaskPayload},
		{"array body", `[]`, apierrors.MsgInvalidTaskPayload},
		{"missing title", map[string]interface{}{"categoryId": "work", "dueDate": due}, apierrors.MsgTitleRequired},
		{"blank title", map[string]interface{}{"title": "  ", "categoryId": "work", "dueDate": due}, apierrors.MsgTitleRequired},
		{"missing category", map[string]interface{}{"title": "x", "dueDate": due}, apierrors.MsgCategoryRequired},
		{"missing due date", map[string]interface{}{"title": "x", "categoryId": "work"}, apierrors.MsgDueDateRequired},
		{"bad status", map[string]interface{}{"title": "x", "categoryId": "work", "dueDate": due, "status": "done"}, apierrors.MsgInvalidStatus},
		{"null status", map[string]interface{}{"title": "x", "categoryId": "work", "dueDate": due, "status": nil}, apierrors.MsgInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/tasks", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			got := decode[apierrors.JsonErr](t, w)
			assert.Equal(t, http.StatusBadRequest, got.ErrDetails.Code)
			assert.Equal(t, translator.Localize(tt.wantKey, translator.LanguageEn, nil), got.ErrDetails.Message)
		})
	}

	assert.Empty(t, api.repo.GetAll())
}

func TestGetTask_NotFoundLocalized(t *testing.T) {
	api := setupAPI(t)

	w := api.do(http.MethodGet, "/api/tasks/missing", nil, "Accept-Language", "fr-FR,fr;q=0.9")
	require.Equal(t, http.StatusNotFound, w.Code)

	got := decode[apierrors.JsonErr](t, w)
	assert.Equal(t, translator.Localize(apierrors.MsgTaskNotFound, translator.LanguageFr, nil), got.ErrDetails.Message)
}

func TestUpdateTask_PatchSemantics(t *testing.T) {
	api := setupAPI(t)

	body := taskBody("Write report", fixedNow.Add(48*time.Hour))
	body["reminderTime"] = fixedNow.Add(time.Hour).Format(time.RFC3339)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", body).Code)

	w := api.do(http.MethodPatch, "/api/tasks/task-1", map[string]interface{}{"status": "in-progress"})
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[models.Task](t, w)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, "Write report", task.Title)
	require.NotNil(t, task.ReminderTime, "absent reminderTime is left alone")

	w = api.do(http.MethodPatch, "/api/tasks/task-1", `{"reminderTime":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.Task](t, w).ReminderTime)

	w = api.do(http.MethodPatch, "/api/tasks/task-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPatch, "/api/tasks/task-1", `{"title":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPatch, "/api/tasks/missing", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTask(t *testing.T) {
	api := setupAPI(t)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("a", fixedNow)).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/tasks/task-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/tasks/task-1", nil).Code)
}

func TestSubtasksAndProgress(t *testing.T) {
	api := setupAPI(t)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("parent", fixedNow.Add(time.Hour))).Code)

	w := api.do(http.MethodPost, "/api/tasks/missing/subtasks", taskBody("child", fixedNow))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t,
		translator.Localize(apierrors.MsgParentTaskNotFound, translator.LanguageEn, nil),
		decode[apierrors.JsonErr](t, w).ErrDetails.Message)

	for _, title := range []string{"one", "two", "three"} {
		w := api.do(http.MethodPost, "/api/tasks/task-1/subtasks", taskBody(title, fixedNow.Add(time.Hour)))
		require.Equal(t, http.StatusCreated, w.Code)
		child := decode[models.Task](t, w)
		require.NotNil(t, child.ParentTaskID)
		assert.Equal(t, "task-1", *child.ParentTaskID)
	}

	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/api/tasks/task-2", map[string]interface{}{"status": "completed"}).Code)

	w = api.do(http.MethodGet, "/api/tasks/task-1/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SubtaskProgress{Total: 3, Completed: 1, Percentage: 33}, decode[models.SubtaskProgress](t, w))

	w = api.do(http.MethodGet, "/api/tasks/task-1?withSubtasks=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.TaskWithSubtasks](t, w).Subtasks, 3)

	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/task-1/subtasks", nil)), 3)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/parents", nil)), 1)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all", nil)), 4)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks", nil)), 1, "list shows root tasks")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/tasks/missing/progress", nil).Code)
}

func TestListTasks_Query(t *testing.T) {
	api := setupAPI(t)

	for i, title := range []string{"Buy milk", "Write report", "Buy bread"} {
		body := taskBody(title, fixedNow.Add(time.Duration(3-i)*time.Hour))
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", body).Code)
	}

	w := api.do(http.MethodGet, "/api/tasks?search=buy&sortBy=dueDate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]models.Task](t, w)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Buy bread", tasks[0].Title)

	w = api.do(http.MethodGet, "/api/tasks?sortBy=title&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks = decode[[]models.Task](t, w)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy bread", tasks[0].Title)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks?sortBy=priority", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks?status=done", nil).Code)
}

func TestDateViewsAndStats(t *testing.T) {
	api := setupAPI(t)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("overdue", fixedNow.Add(-24*time.Hour))).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("today", fixedNow.Add(2*time.Hour))).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("soon", fixedNow.Add(72*time.Hour))).Code)

	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/overdue", nil)), 1)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/due-today", nil)), 1)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/upcoming", nil)), 2)

	stats := decode[models.TaskStats](t, api.do(http.MethodGet, "/api/tasks/stats", nil))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Overdue)

	d := decode[services.Dashboard](t, api.do(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 3, d.Stats.Total)
	assert.Len(t, d.Overdue, 1)
}

type taskServiceMock struct {
	mock.Mock
	services.TaskService
}

func (m *taskServiceMock) CreateTask(ctx context.Context, input models.TaskInput) (models.Task, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(models.Task), args.Error(1)
}

func TestCreateTask_StoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serviceMock := new(taskServiceMock)
	serviceMock.On("CreateTask", mock.Anything, mock.AnythingOfType("models.TaskInput")).
		Return(models.Task{}, errors.New("disk full")).Once()

	router := gin.New()
	handlers.RegisterRoutes(router, handlers.Handlers{Tasks: handlers.NewTaskHandler(serviceMock)})

	api := &testAPI{router: router}
	w := api.do(http.MethodPost, "/api/tasks", taskBody("x", fixedNow))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	got := decode[apierrors.JsonErr](t, w)
	assert.Equal(t, translator.Localize(apierrors.MsgFailCreateTask, translator.LanguageEn, nil), got.ErrDetails.Message)
	serviceMock.AssertExpectations(t)
}

func TestGetAllTasks_Filters(t *testing.T) {
	api := setupAPI(t)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", taskBody("parent", fixedNow.Add(time.Hour))).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks/task-1/subtasks", taskBody("child", fixedNow.Add(time.Hour))).Code)

	ghost := taskBody("orphaned category", fixedNow.Add(time.Hour))
	ghost["categoryId"] = "ghost"
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", ghost).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/api/tasks/task-3", map[string]interface{}{"status": "completed"}).Code)

	pending := decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all?status=pending", nil))
	require.Len(t, pending, 2)
	assert.Equal(t, "task-2", pending[1].ID, "subtasks are included")

	// the root-only list drops the subtask
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks?status=pending", nil)), 1)

	ghosts := decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all?categoryId=ghost", nil))
	require.Len(t, ghosts, 1)
	assert.Equal(t, "task-3", ghosts[0].ID)

	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all?categoryId=ghost&status=pending", nil)), 0)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all?categoryId=work&status=pending", nil)), 2)
	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/tasks/all", nil)), 3)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/tasks/all?status=done", nil).Code)

	w := api.do(http.MethodGet, "/api/categories/ghost/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, w), 1)
}
