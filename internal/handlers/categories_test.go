package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"taskflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories_CRUDWithCounts(t *testing.T) {
	api := setupAPI(t)

	w := api.do(http.MethodPost, "/api/categories", map[string]interface{}{"name": "Work", "color": "#3b82f6"})
	require.Equal(t, http.StatusCreated, w.Code)
	work := decode[models.Category](t, w)
	assert.Equal(t, "cat-1", work.ID)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/categories", map[string]interface{}{"color": "#fff"}).Code)

	body := taskBody("a", fixedNow.Add(time.Hour))
	body["categoryId"] = work.ID
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tasks", body).Code)

	list := decode[[]models.CategoryWithCount](t, api.do(http.MethodGet, "/api/categories", nil))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].TaskCount)

	assert.Len(t, decode[[]models.Task](t, api.do(http.MethodGet, "/api/categories/cat-1/tasks", nil)), 1)
	w = api.do(http.MethodGet, "/api/categories/nope/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Task](t, w))

	w = api.do(http.MethodPatch, "/api/categories/cat-1", map[string]interface{}{"name": "Office"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Office", decode[models.Category](t, w).Name)
	assert.Equal(t, "#3b82f6", decode[models.Category](t, w).Color)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/categories/cat-1", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch, "/api/categories/nope", map[string]interface{}{"name": "x"}).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/categories/cat-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/categories/cat-1", nil).Code)
	assert.Len(t, api.repo.GetByCategory("cat-1"), 1, "tasks survive their category")
}

func TestPreferences(t *testing.T) {
	api := setupAPI(t)

	prefs := decode[models.Preferences](t, api.do(http.MethodGet, "/api/preferences", nil))
	assert.Equal(t, models.DefaultPreferences(), prefs)

	w := api.do(http.MethodPatch, "/api/preferences", map[string]interface{}{"theme": "dark", "reminderOffset": 15})
	require.Equal(t, http.StatusOK, w.Code)
	prefs = decode[models.Preferences](t, w)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, 15, prefs.ReminderOffset)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/preferences", `{"theme":null}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/preferences", `{"reminderOffset":-5}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/preferences", `{"unknown":1}`).Code)

	w = api.do(http.MethodPost, "/api/preferences/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DefaultPreferences(), decode[models.Preferences](t, w))
}
