package handlers

import (
	"context"
	"net/http"

	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/pkg/apierrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PreferencesService interface {
	Get() models.Preferences
	Update(ctx context.Context, patch models.PreferencesPatch) (models.Preferences, error)
	Reset(ctx context.Context) (models.Preferences, error)
}

type PreferencesHandler struct {
	prefs PreferencesService
}

func NewPreferencesHandler(prefs PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.prefs.Get())
}

func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	lang := middleware.GetLang(c)

	var req models.PreferencesPatch
	raw, err := bindJSON(c, &req)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, apierrors.MsgInvalidPreferencesPayload, lang)
		return
	}

	patch, err := buildPreferencesPatch(req, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, messageKey(err, apierrors.MsgInvalidPreferencesPayload), lang)
		return
	}

	prefs, err := h.prefs.Update(c.Request.Context(), patch)
	if err != nil {
		zap.L().Error("failed to save preferences", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, apierrors.MsgFailSavePreferences, lang)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *PreferencesHandler) ResetPreferences(c *gin.Context) {
	prefs, err := h.prefs.Reset(c.Request.Context())
	if err != nil {
		zap.L().Error("failed to reset preferences", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, apierrors.MsgFailSavePreferences, middleware.GetLang(c))
		return
	}
	c.JSON(http.StatusOK, prefs)
}
