package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/health", m.HealthHandler())
	r.GET("/ready", m.ReadinessHandler())
	r.GET("/live", m.LivenessHandler())
	r.GET("/metrics", m.MetricsHandler())
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth_AllHealthy(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", func(context.Context) error { return nil })
	r := setupRouter(m)

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string        `json:"status"`
		Checks []HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "database", body.Checks[0].Name)

	assert.Equal(t, http.StatusOK, get(r, "/ready").Code)
}

func TestHealth_FailingCheck(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	r := setupRouter(m)

	w := get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(r, "/live").Code)
}

func TestMetrics_CountsRequestsAndComponents(t *testing.T) {
	m := NewMonitor()
	m.RegisterStats("queue", func(context.Context) interface{} { return map[string]int{"ready": 2} })
	r := setupRouter(m)

	get(r, "/live")
	get(r, "/boom")

	rm := m.RequestMetrics()
	assert.Equal(t, int64(2), rm.RequestCount)
	assert.Equal(t, int64(1), rm.ErrorCount)
	assert.Equal(t, int64(1), rm.StatusCodes["500"])
	assert.Equal(t, int64(1), rm.Endpoints["GET /live"])

	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Components map[string]map[string]int `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Components["queue"]["ready"])
}
