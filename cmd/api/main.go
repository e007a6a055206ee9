package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/config"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/observability"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/jobrequest"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/listing"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/rating"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Telemetry ────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observability.Setup(ctx, observability.SetupOptions{
		ServiceName: cfg.ServiceName,
		Exporter:    cfg.OTelExporter,
	})
	if err != nil {
		log.Error("telemetry setup failed", "err", err)
		os.Exit(1)
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	gdb, err := db.Connect(cfg.DBDSN, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		LogLevel:     cfg.LogLevel,
	})
	if err != nil {
		log.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	if err := db.Seed(gdb); err != nil {
		log.Error("seeding reference data failed", "err", err)
		os.Exit(1)
	}
	log.Info("database ready")

	// ── Redis + realtime ─────────────────────────────────────────────────────
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	notifier := &realtime.Notifier{Hub: hub, Log: log}
	rdb, err := realtime.NewRedis(ctx, realtime.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn("redis unavailable, events go to websockets only", "err", err)
	} else {
		defer rdb.Close()
		notifier.RDB = rdb
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	escrowSvc := escrow.NewService(gdb)
	requests := jobrequest.NewService(gdb, escrowSvc, notifier, log)
	requests.MaxAttempts = cfg.TxRetryAttempts

	// ── HTTP server ──────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	handlers.Routes(app, handlers.Deps{
		DB:        gdb,
		Listing:   listing.NewService(gdb, log),
		Requests:  requests,
		Ratings:   rating.NewService(gdb, notifier, log),
		Escrow:    escrowSvc,
		Hub:       hub,
		Log:       log,
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		log.Info("listening", "port", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown error", "err", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		log.Error("telemetry shutdown error", "err", err)
	}
	log.Info("stopped")
}
