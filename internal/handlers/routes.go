package handlers

import (
	"taskflow/internal/monitoring"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Tasks       *TaskHandler
	Categories  *CategoryHandler
	Preferences *PreferencesHandler
	Dashboard   *DashboardHandler
	Monitor     *monitoring.Monitor
}

// RegisterRoutes mounts the API under /api. Nil handlers leave their
// routes out. Error messages are localized from middleware.LanguageMiddleware,
// which the caller installs on the engine ahead of any middleware that can
// abort a request.
func RegisterRoutes(r gin.IRouter, h Handlers) {
	api := r.Group("/api")

	if h.Monitor != nil {
		api.GET("/health", h.Monitor.HealthHandler())
		api.GET("/health/live", h.Monitor.LivenessHandler())
		api.GET("/health/ready", h.Monitor.ReadinessHandler())
		api.GET("/metrics", h.Monitor.MetricsHandler())
	}

	if h.Tasks != nil {
		tasks := api.Group("/tasks")
		{
			tasks.GET("", h.Tasks.ListTasks)
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("/all", h.Tasks.GetAllTasks)
			tasks.GET("/overdue", h.Tasks.GetOverdue)
			tasks.GET("/due-today", h.Tasks.GetDueToday)
			tasks.GET("/upcoming", h.Tasks.GetUpcoming)
			tasks.GET("/stats", h.Tasks.GetStats)
			tasks.GET("/parents", h.Tasks.GetParentTasks)
			tasks.GET("/:id", h.Tasks.GetTaskByID)
			tasks.PATCH("/:id", h.Tasks.UpdateTask)
			tasks.DELETE("/:id", h.Tasks.DeleteTask)
			tasks.GET("/:id/subtasks", h.Tasks.GetSubtasks)
			tasks.POST("/:id/subtasks", h.Tasks.CreateSubtask)
			tasks.GET("/:id/progress", h.Tasks.GetSubtaskProgress)
		}
	}

	if h.Categories != nil {
		categories := api.Group("/categories")
		{
			categories.GET("", h.Categories.ListCategories)
			categories.POST("", h.Categories.CreateCategory)
			categories.GET("/:id/tasks", h.Categories.GetCategoryTasks)
			categories.PATCH("/:id", h.Categories.UpdateCategory)
			categories.DELETE("/:id", h.Categories.DeleteCategory)
		}
	}

	if h.Preferences != nil {
		api.GET("/preferences", h.Preferences.GetPreferences)
		api.PATCH("/preferences", h.Preferences.UpdatePreferences)
		api.POST("/preferences/reset", h.Preferences.ResetPreferences)
	}

	if h.Dashboard != nil {
		api.GET("/dashboard", h.Dashboard.GetDashboard)
	}
}
