package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/internal/server"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestApplicationStartup(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("SEED_FILE", "")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	app, err := server.NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReminderDeliveredEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: "0", ShutdownTimeout: time.Second, Environment: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Redis:    config.RedisConfig{KeyPrefix: "it:"},
		Worker: config.WorkerConfig{
			Enabled:      true,
			Concurrency:  1,
			PollInterval: 20 * time.Millisecond,
			JobTimeout:   time.Second,
			MaxTries:     3,
			RetryBackoff: time.Second,
		},
		Cache: config.CacheConfig{DashboardTTL: time.Minute, L1TTL: time.Minute},
	}

	core, logs := observer.New(zap.InfoLevel)
	app, err := server.NewApp(context.Background(), cfg, zap.New(core), server.WithRedisClient(client))
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	remindAt := time.Now().Add(300 * time.Millisecond).Truncate(time.Second).Add(time.Second)
	body, _ := json.Marshal(map[string]interface{}{
		"title":        "Call the bank",
		"categoryId":   "personal",
		"dueDate":      remindAt.Add(time.Hour).Format(time.RFC3339),
		"reminderTime": remindAt.Format(time.RFC3339),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	app.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("task reminder").Len() == 1
	}, 5*time.Second, 20*time.Millisecond)

	entry := logs.FilterMessage("task reminder").All()[0]
	assert.Equal(t, task.ID, entry.ContextMap()["task_id"])
}
