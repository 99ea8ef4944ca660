package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/easywinget/backend/internal/config"
	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/infrastructure/cache"
	"github.com/easywinget/backend/internal/infrastructure/db"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	transporthttp "github.com/easywinget/backend/internal/transport/http"
	"github.com/easywinget/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "../config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	var (
		database *gorm.DB
		history  ports.TaskHistoryRepository
	)
	if cfg.Database.Enabled {
		database, err = db.NewPostgresConnection(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		log.Info("database connection established")

		if err := db.RunMigrations(database); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Info("database migrations completed")
		history = db.NewTaskHistoryRepository(database, log)
	} else {
		history = db.NewTaskHistoryRepoStub(log)
	}

	viewCache := cache.NewNoopViewCache()
	closeCache := func() error { return nil }
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, closeFn, err := cache.NewRedisViewCache(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.ViewTTL)
		cancel()
		if err != nil {
			log.Warnw("redis_unavailable_view_cache_disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			viewCache, closeCache = c, closeFn
			log.Infow("redis_view_cache_enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.ViewTTL)
		}
	}

	backend, err := newBackend(cfg, log.Component("backend"))
	if err != nil {
		log.Fatalf("failed to configure backend: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:8080"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token, X-Backend-Token",
		AllowMethods: "GET, POST, HEAD",
	}))

	app.Use(middleware.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(middleware.AccessLog(log))
	}
	if cfg.Features.EnableMetrics {
		app.Use(middleware.Metrics())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "backend": cfg.Backend.Mode})
	})

	rt := transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Config:  cfg,
		Logger:  log,
		Backend: backend,
		Cache:   viewCache,
		History: history,
	})

	stopRetention := startRetention(history, cfg.Database.HistoryRetention, log)

	go func() {
		if err := app.Listen(cfg.Server.Address()); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s (backend: %s)", cfg.Server.Address(), cfg.Backend.Mode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	if err := rt.Launcher.Shutdown(ctx); err != nil {
		log.Warnf("running tasks abandoned: %v", err)
	}
	rt.Toasts.Stop()
	stopRetention()

	if err := closeCache(); err != nil {
		log.Errorf("failed to close redis: %v", err)
	}
	if database != nil {
		if err := db.Close(database); err != nil {
			log.Errorf("failed to close database connection: %v", err)
		}
	}

	log.Info("server exited gracefully")
}

// startRetention prunes task history once a day.
func startRetention(history ports.TaskHistoryRepository, retention time.Duration, log *logger.Logger) func() {
	if retention <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			if err := history.CleanupOld(ctx, retention); err != nil {
				log.Warnw("history_cleanup_failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code < fiber.StatusInternalServerError {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(string(middleware.RequestIDKey)),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(string(middleware.RequestIDKey)),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
