package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casedesk/internal/adapters/http/middleware"
	"casedesk/internal/adapters/http/routes"
	"casedesk/internal/adapters/persistence/models"
	"casedesk/internal/adapters/realtime"
	"casedesk/internal/config"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// @title casedesk API
// @version 1.0
// @description Case lifecycle API for law firms: credit and legal cases, escalation, live updates.

// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.AppMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()

	// Connect to database
	db, err := config.ConnectDatabase(cfg, appLog)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			appLog.Error("failed to close database", "error", err)
		}
	}()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		appLog.Fatal("failed to auto migrate", "error", err)
	}
	appLog.Info("database migration completed")

	if cfg.IsDev() {
		if err := config.NewSeeder(db, cfg, appLog).Run(); err != nil {
			appLog.Warn("failed to seed development data", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event fan-out; with redis configured, events also reach other instances
	hub := services.NewEventHub(cfg.Events.BufferSize, appLog)
	bus := routes.EventBus{Source: hub, Publisher: hub, Clients: hub.ClientCount}
	if cfg.Redis.Enabled() {
		relay, err := realtime.NewRedisRelay(cfg.Redis.Addr, cfg.Redis.Channel, uuid.NewString(), hub, appLog)
		if err != nil {
			appLog.Fatal("failed to connect to redis", "error", err)
		}
		defer relay.Close()
		if err := relay.StartForwarder(ctx); err != nil {
			appLog.Fatal("failed to start event forwarder", "error", err)
		}
		bus.Publisher = relay
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "casedesk API v1",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	reconciler := routes.Setup(app, db, cfg, appLog, bus)
	if err := reconciler.Start(); err != nil {
		appLog.Fatal("failed to schedule reconciliation", "error", err)
	}
	defer reconciler.Stop()

	// Graceful shutdown
	go gracefulShutdown(ctx, app, appLog)

	// Start server
	appLog.Info("server starting", "port", cfg.Port, "mode", cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Error("server stopped with error", "error", err)
	}
}

// gracefulShutdown stops the server once ctx is cancelled by a signal
func gracefulShutdown(ctx context.Context, app *fiber.App, log *logger.Logger) {
	<-ctx.Done()

	log.Info("shutting down server")
	// open event streams never go idle, so shutdown is bounded
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("server stopped gracefully")
}
