package http

import (
	"os"

	"github.com/easywinget/backend/internal/config"
	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/handlers"
	httpmw "github.com/easywinget/backend/internal/transport/http/middleware"
	"github.com/easywinget/backend/internal/transport/ws"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RouterConfig struct {
	Config  *config.Config
	Logger  *logger.Logger
	Backend ports.PackageManager
	Cache   ports.ViewCache
	History ports.TaskHistoryRepository
}

// Runtime holds the long-lived services the caller must stop on shutdown.
type Runtime struct {
	Hub      *ws.Hub
	Store    *services.TaskSessionStore
	Launcher *services.Launcher
	Toasts   *services.ToastService
	Confirm  *services.ConfirmGate
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) *Runtime {
	sess := cfg.Config.Session

	log := cfg.Logger
	sessionLog := log.Component("session")

	hub := ws.NewHub(log.Component("ws"))
	store := services.NewTaskSessionStore(sess.MaxMinimized)
	visibility := services.NewVisibilityController(store, hub, sessionLog)
	taskService := services.NewTaskService(store, hub, sessionLog)
	toastService := services.NewToastService(hub, log.Component("toast"), sess.ToastTTL)
	confirmGate := services.NewConfirmGate(services.ConfirmGateConfig{
		Publisher:   hub,
		Logger:      log.Component("confirm"),
		AutoConfirm: sess.AutoConfirm,
		Timeout:     sess.ConfirmTimeout,
	})
	viewService := services.NewViewService(cfg.Backend, cfg.Cache, hub, log.Component("views"))

	launcher := services.NewLauncher(services.LauncherConfig{
		Tasks:          taskService,
		Store:          store,
		Visibility:     visibility,
		Backend:        cfg.Backend,
		Confirmer:      confirmGate,
		Notifier:       toastService,
		Refresher:      viewService,
		History:        cfg.History,
		Logger:         log.Component("launcher"),
		DownloadsLabel: cfg.Config.Backend.DownloadsLabel,
		BackendTimeout: cfg.Config.Backend.CommandTimeout,
	})

	taskHandler := handlers.NewTaskHandler(launcher, taskService, toastService, log)
	sessionHandler := handlers.NewSessionHandler(store, visibility, log)
	confirmationHandler := handlers.NewConfirmationHandler(confirmGate, log)
	toastHandler := handlers.NewToastHandler(toastService)
	historyHandler := handlers.NewHistoryHandler(cfg.History)
	viewHandler := handlers.NewViewHandler(viewService, log)
	backendHandler := handlers.NewBackendHandler(cfg.Backend, log)
	wsHandler := ws.NewSessionHandler(hub, store, visibility, confirmGate, log.Component("ws"))

	// Session event stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/session", httpmw.AdminAuth(cfg.Config), websocket.New(wsHandler.Handle))

	// API v1 routes
	api := app.Group("/api/v1", httpmw.AdminAuth(cfg.Config))

	tasks := api.Group("/tasks")
	tasks.Post("/:action", taskHandler.Launch)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/:id/cancel", taskHandler.CancelTask)

	session := api.Group("/session")
	session.Get("/", sessionHandler.GetSession)
	session.Post("/minimize", sessionHandler.Minimize)
	session.Post("/close", sessionHandler.Close)
	session.Post("/restore/:id", sessionHandler.Restore)
	session.Post("/restore-index/:index", sessionHandler.RestoreIndex)

	confirmations := api.Group("/confirmations")
	confirmations.Get("/", confirmationHandler.GetPending)
	confirmations.Post("/:id", confirmationHandler.Answer)

	api.Get("/toasts", toastHandler.GetToasts)
	api.Get("/history", historyHandler.GetHistory)
	api.Get("/views/:view", viewHandler.GetView)

	// Backend API called by other panels (HTTP backend mode)
	backendAuth := httpmw.BackendAuth(cfg.Config)
	app.Get("/api/views/:view", backendAuth, viewHandler.GetView)
	app.Get("/api/:action", backendAuth, backendHandler.Run)

	if dir := cfg.Config.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			app.Static("/", dir)
		}
	}

	return &Runtime{
		Hub:      hub,
		Store:    store,
		Launcher: launcher,
		Toasts:   toastService,
		Confirm:  confirmGate,
	}
}
