// Package server assembles the application from configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/monitoring"
	"taskflow/internal/repositories"
	"taskflow/internal/seed"
	"taskflow/internal/services"
	"taskflow/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// App owns every long-lived component. Optional parts are nil when their
// backing service is not configured: DB for the memory driver, Redis, Queue
// and Worker when Redis is disabled.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB     *database.DatabasePool
	Redis  *redis.Client
	Cache  *cache.MultiLevelCache
	Queue  *worker.JobQueue
	Worker *worker.Worker

	Tasks       *repositories.TaskRepository
	Categories  *repositories.CategoryRepository
	Preferences *repositories.PreferencesRepository

	TaskService        *services.DefaultTaskService
	CategoryService    *services.CategoryService
	PreferencesService *services.PreferencesService
	DashboardService   *services.DashboardService

	Monitor     *monitoring.Monitor
	RateLimiter *middleware.RateLimiter

	now func() time.Time
}

type Option func(*App)

// WithRedisClient supplies an existing client instead of dialing the
// configured address.
func WithRedisClient(client *redis.Client) Option {
	return func(a *App) { a.Redis = client }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Monitor: monitoring.NewMonitor(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openRedis()
	a.buildServices()
	a.registerProbes()

	if cfg.RateLimit.Enabled {
		a.RateLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMin:  cfg.RateLimit.RequestsPerMin,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		})
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config
	newID := repositories.NewUUID

	if cfg.Database.Driver == config.DriverMemory {
		f, err := a.readSeed()
		if err != nil {
			return err
		}
		a.Tasks = repositories.NewTaskRepository(&repositories.TaskRepositoryConfig{
			Clock:       a.now,
			NewID:       newID,
			InitialData: f.Tasks,
		})
		a.Categories = repositories.NewCategoryRepository(f.Categories, newID, nil)
		a.Preferences = repositories.NewPreferencesRepository(nil)
		a.Logger.Info("using in-memory store", zap.Int("tasks", len(f.Tasks)))
		return nil
	}

	pool := database.DefaultPoolConfig()
	pool.Driver = cfg.Database.Driver
	pool.DSN = cfg.GetDatabaseDSN()
	pool.MaxOpenConns = cfg.Database.MaxOpenConns
	pool.MaxIdleConns = cfg.Database.MaxIdleConns
	pool.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	pool.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	if cfg.IsProduction() {
		pool.LogLevel = gormlogger.Warn
	}

	db, err := database.NewDatabasePool(pool)
	if err != nil {
		return err
	}
	a.DB = db

	if err := repositories.AutoMigrate(db.DB); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	taskStore := repositories.NewGormTaskStore(db.DB)
	categoryStore := repositories.NewGormCategoryStore(db.DB)

	a.Tasks = repositories.NewTaskRepository(&repositories.TaskRepositoryConfig{
		Clock: a.now,
		NewID: newID,
		Store: taskStore,
	})
	a.Categories = repositories.NewCategoryRepository(nil, newID, categoryStore)
	a.Preferences = repositories.NewPreferencesRepository(repositories.NewGormPreferencesStore(db.DB))

	if err := a.Tasks.Load(ctx); err != nil {
		return err
	}

	if len(a.Tasks.GetAll()) == 0 && cfg.Seed.File != "" {
		f, err := a.readSeed()
		if err != nil {
			return err
		}
		if err := f.Apply(ctx, db.DB); err != nil {
			return err
		}
		if err := a.Tasks.Load(ctx); err != nil {
			return err
		}
		a.Logger.Info("seeded empty database", zap.String("file", cfg.Seed.File), zap.Int("tasks", len(f.Tasks)))
	}

	if err := a.Categories.Load(ctx); err != nil {
		return err
	}
	return a.Preferences.Load(ctx)
}

func (a *App) readSeed() (*seed.File, error) {
	if a.Config.Seed.File == "" {
		return &seed.File{}, nil
	}
	return seed.ReadFile(a.Config.Seed.File, a.now())
}

func (a *App) openRedis() {
	cfg := a.Config
	if !cfg.Redis.Enabled && a.Redis == nil {
		a.Cache = cache.NewMultiLevelCache(nil, cache.WithLogger(a.Logger), cache.WithL1TTL(cfg.Cache.L1TTL))
		return
	}

	if a.Redis == nil {
		a.Redis = cache.NewRedisClient(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	}

	cacheOpts := []cache.MultiLevelOption{
		cache.WithLogger(a.Logger),
		cache.WithL1TTL(cfg.Cache.L1TTL),
	}
	if cfg.Cache.BreakerMaxFailures > 0 {
		cacheOpts = append(cacheOpts, cache.WithCircuitBreaker(cache.NewCircuitBreaker(&cache.CircuitBreakerConfig{
			MaxFailures:      cfg.Cache.BreakerMaxFailures,
			Timeout:          cfg.Cache.BreakerCooldown,
			HalfOpenMaxCalls: 1,
		})))
	}
	a.Cache = cache.NewMultiLevelCache(cache.NewRedisCache(a.Redis, cfg.Redis.KeyPrefix), cacheOpts...)

	queues := queuesFor(cfg.Redis.KeyPrefix)
	a.Queue = worker.NewJobQueue(a.Redis, queues, cfg.Worker.MaxTries)

	if cfg.Worker.Enabled {
		a.Worker = worker.NewWorker(worker.WorkerConfig{
			RedisClient:  a.Redis,
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			JobTimeout:   cfg.Worker.JobTimeout,
			RetryBackoff: cfg.Worker.RetryBackoff,
			Queues:       queues,
			Logger:       a.Logger.Named("worker"),
		})
	}
}

func queuesFor(prefix string) worker.Queues {
	if prefix == "" {
		return worker.DefaultQueues()
	}
	return worker.Queues{
		Ready:      prefix + "jobs:ready",
		Processing: prefix + "jobs:processing",
		Delayed:    prefix + "jobs:delayed",
		Dead:       prefix + "jobs:dead",
	}
}

func (a *App) buildServices() {
	opts := []services.TaskServiceOption{
		services.WithCache(a.Cache),
		services.WithTaskLogger(a.Logger.Named("tasks")),
	}
	if a.Queue != nil {
		opts = append(opts, services.WithReminders(services.NewReminderScheduler(a.Queue, a.Preferences, a.Logger.Named("reminders"))))
	}
	a.TaskService = services.NewTaskService(a.Tasks, opts...)
	a.CategoryService = services.NewCategoryService(a.Categories, a.Tasks, a.Cache, a.Logger.Named("categories"))
	a.PreferencesService = services.NewPreferencesService(a.Preferences, a.TaskService, a.Logger.Named("preferences"))
	a.DashboardService = services.NewDashboardService(a.Tasks, a.CategoryService, a.Cache, a.Config.Cache.DashboardTTL, a.Logger)

	if a.Worker != nil {
		h := services.NewReminderHandler(a.Tasks, a.Preferences, services.NewLogNotifier(a.Logger.Named("notify")), a.Logger).
			WithLedger(services.NewRedisReminderLedger(a.Redis, a.Config.Redis.KeyPrefix))
		a.Worker.RegisterHandler(worker.JobTypeTaskReminder, h.Handle)
	}
}

func (a *App) registerProbes() {
	m := a.Monitor
	if a.DB != nil {
		m.RegisterHealthCheck("database", func(context.Context) error { return a.DB.Health() })
		m.RegisterStats("database", func(context.Context) interface{} { return a.DB.Stats() })
	}
	if a.Redis != nil {
		m.RegisterHealthCheck("redis", a.Cache.Health)
	}
	m.RegisterStats("cache", func(context.Context) interface{} { return a.Cache.Stats() })
	if a.Queue != nil {
		m.RegisterStats("queue", func(ctx context.Context) interface{} {
			stats, err := a.Queue.Stats(ctx)
			if err != nil {
				return gin.H{"error": err.Error()}
			}
			return stats
		})
	}
	m.RegisterStats("tasks", func(context.Context) interface{} { return a.Tasks.GetStats() })
}

// Router builds the gin engine with the full middleware chain.
func (a *App) Router() *gin.Engine {
	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RecoveryWithLog())
	r.Use(middleware.GinZapMiddleware(a.Logger.Named("http")))
	r.Use(a.Monitor.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.Config.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.LanguageMiddleware())
	if a.RateLimiter != nil {
		r.Use(a.RateLimiter.Middleware())
	}

	handlers.RegisterRoutes(r, handlers.Handlers{
		Tasks:       handlers.NewTaskHandler(a.TaskService),
		Categories:  handlers.NewCategoryHandler(a.CategoryService),
		Preferences: handlers.NewPreferencesHandler(a.PreferencesService),
		Dashboard:   handlers.NewDashboardHandler(a.DashboardService),
		Monitor:     a.Monitor,
	})
	return r
}

// Run serves HTTP and the background components until ctx is cancelled,
// then shuts down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.GetServerAddr(),
		Handler:      a.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	if a.RateLimiter != nil {
		go a.RateLimiter.Run(bgCtx)
	}
	if a.Worker != nil {
		a.Worker.Start(bgCtx)
		if n := a.TaskService.RescheduleReminders(bgCtx); n > 0 {
			a.Logger.Info("reminders scheduled at startup", zap.Int("count", n))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("driver", a.Config.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	cancelBg()
	if a.Worker != nil {
		a.Worker.Stop()
	}
	return err
}

func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, err)
		}
	} else if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
