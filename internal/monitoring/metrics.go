package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 2 * time.Second
)

// RequestMetrics aggregates per-route request counters.
type RequestMetrics struct {
	RequestCount  int64            `json:"request_count"`
	AvgDurationMs float64          `json:"avg_request_duration_ms"`
	Active        int64            `json:"active_requests"`
	ErrorCount    int64            `json:"error_count"`
	StatusCodes   map[string]int64 `json:"status_codes"`
	Endpoints     map[string]int64 `json:"endpoint_calls"`
	LastRequest   time.Time        `json:"last_request"`
}

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

// StatsFunc contributes a named section to the metrics report.
type StatsFunc func(ctx context.Context) interface{}

type Monitor struct {
	mu            sync.Mutex
	requests      RequestMetrics
	totalDuration time.Duration

	checksMu sync.RWMutex
	checks   map[string]HealthCheckFunc
	stats    map[string]StatsFunc

	startTime time.Time
	now       func() time.Time
}

func NewMonitor() *Monitor {
	now := time.Now
	return &Monitor{
		requests: RequestMetrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
		},
		checks:    make(map[string]HealthCheckFunc),
		stats:     make(map[string]StatsFunc),
		startTime: now(),
		now:       now,
	}
}

// RegisterHealthCheck adds a dependency probe that readiness depends on.
func (m *Monitor) RegisterHealthCheck(name string, check HealthCheckFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.checks[name] = check
}

func (m *Monitor) RegisterStats(name string, fn StatsFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.stats[name] = fn
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := m.now()

		m.mu.Lock()
		m.requests.Active++
		m.mu.Unlock()

		c.Next()

		elapsed := m.now().Sub(start)
		code := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		m.mu.Lock()
		defer m.mu.Unlock()
		m.requests.Active--
		m.requests.RequestCount++
		m.totalDuration += elapsed
		m.requests.LastRequest = m.now()
		if code >= http.StatusBadRequest {
			m.requests.ErrorCount++
		}
		m.requests.StatusCodes[strconv.Itoa(code)]++
		m.requests.Endpoints[endpoint]++
	}
}

func (m *Monitor) RequestMetrics() RequestMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.requests
	out.StatusCodes = make(map[string]int64, len(m.requests.StatusCodes))
	for k, v := range m.requests.StatusCodes {
		out.StatusCodes[k] = v
	}
	out.Endpoints = make(map[string]int64, len(m.requests.Endpoints))
	for k, v := range m.requests.Endpoints {
		out.Endpoints[k] = v
	}
	if out.RequestCount > 0 {
		out.AvgDurationMs = float64(m.totalDuration.Microseconds()) / 1000 / float64(out.RequestCount)
	}
	return out
}

// RunHealthChecks runs every registered probe with its own timeout.
func (m *Monitor) RunHealthChecks(ctx context.Context) []HealthCheck {
	m.checksMu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(m.checks))
	for k, v := range m.checks {
		checks[k] = v
	}
	m.checksMu.RUnlock()

	sort.Strings(names)
	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		results = append(results, m.runCheck(ctx, name, checks[name]))
	}
	return results
}

func (m *Monitor) runCheck(ctx context.Context, name string, check HealthCheckFunc) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	result := HealthCheck{Name: name, Status: StatusHealthy, LastRun: m.now()}
	if err := check(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return SystemMetrics{
		Uptime: m.now().Sub(m.startTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(ms.Alloc),
			TotalAlloc: bToMb(ms.TotalAlloc),
			Sys:        bToMb(ms.Sys),
			NumGC:      ms.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func overall(checks []HealthCheck) string {
	for _, check := range checks {
		if check.Status != StatusHealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunHealthChecks(c.Request.Context())
		status := overall(checks)

		code := http.StatusOK
		if status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": m.now(),
			"checks":    checks,
			"uptime":    m.now().Sub(m.startTime).Round(time.Second).String(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if overall(m.RunHealthChecks(c.Request.Context())) != StatusHealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "timestamp": m.now()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": m.now()})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": m.now(),
		})
	}
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.checksMu.RLock()
		stats := make(map[string]StatsFunc, len(m.stats))
		for k, v := range m.stats {
			stats[k] = v
		}
		m.checksMu.RUnlock()

		components := make(map[string]interface{}, len(stats))
		for name, fn := range stats {
			components[name] = fn(c.Request.Context())
		}

		c.JSON(http.StatusOK, gin.H{
			"application": m.RequestMetrics(),
			"system":      m.SystemMetrics(),
			"components":  components,
			"timestamp":   m.now(),
		})
	}
}
