package handlers

import (
	"context"
	"net/http"

	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
)

type DashboardService interface {
	Get(ctx context.Context) services.Dashboard
}

type DashboardHandler struct {
	dashboard DashboardService
}

func NewDashboardHandler(dashboard DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Get(c.Request.Context()))
}
