package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmc453/workshop-booker/internal/app"
	"github.com/gmc453/workshop-booker/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting workshop booking core",
		zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	core, err := app.NewCore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("Failed to assemble reservation core", zap.Error(err))
	}
	defer core.Close()

	logger.Info("Reservation core ready")

	// The caller-facing surface (REST controllers, admin dashboard) lives
	// outside this module and drives core.Reservations / core.Availability
	// directly. This binary keeps the scheduler and notification engine
	// running until the process is told to stop.
	<-ctx.Done()

	logger.Info("Shutting down, draining scheduled jobs",
		zap.Duration("grace", shutdownGrace))
	core.Jobs.Shutdown(shutdownGrace)
	logger.Info("Bye")
}
