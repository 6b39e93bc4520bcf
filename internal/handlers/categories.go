package handlers

import (
	"context"
	"net/http"
	"strings"

	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/pkg/apierrors"

	"github.com/gin-gonic/gin"
)

type CategoryService interface {
	ListWithCounts() []models.CategoryWithCount
	Tasks(id string) []models.Task
	Create(ctx context.Context, name, color string) (models.Category, error)
	Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

type CategoryHandler struct {
	categories CategoryService
}

func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.categories.ListWithCounts())
}

func (h *CategoryHandler) GetCategoryTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.categories.Tasks(c.Param("id")))
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req categoryRequest
	if _, err := bindJSON(c, &req); err != nil || req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidCategoryPayload, lang)
		return
	}

	color := ""
	if req.Color != nil {
		color = *req.Color
	}

	category, err := h.categories.Create(c.Request.Context(), strings.TrimSpace(*req.Name), color)
	if err != nil {
		handleTaskError(c, err, apierrors.MsgFailSaveCategory)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req categoryRequest
	raw, err := bindJSON(c, &req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidCategoryPayload, lang)
		return
	}

	patch, err := buildCategoryPatch(req, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, messageKey(err, apierrors.MsgInvalidCategoryPayload), lang)
		return
	}

	category, err := h.categories.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		handleTaskError(c, err, apierrors.MsgFailSaveCategory)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleTaskError(c, err, apierrors.MsgFailSaveCategory)
		return
	}
	c.Status(http.StatusNoContent)
}
