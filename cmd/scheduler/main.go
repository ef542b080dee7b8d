package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ChallengeUp/config"
	"ChallengeUp/internal/bootstrap"
	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/repository"
	"ChallengeUp/internal/schedule"
	"ChallengeUp/pkg/clock"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/storage"
	"ChallengeUp/storage/database"
)

func main() {

	logger.Init("scheduler")
	defer logger.Sync()

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if config.Cfg.TrackerStore == "memory" {
		logger.Logger.Fatal("Scheduler requires TRACKER_STORE=postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownTelemetry, err := bootstrap.Telemetry(ctx, "scheduler")
	if err != nil {
		logger.Logger.Warn("OpenTelemetry disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Logger.Warn("Storage closed with errors", zap.Error(err))
		}
	}()

	loc, err := config.Cfg.DayLocation()
	if err != nil {
		logger.Logger.Fatal("Invalid check-in timezone", zap.Error(err))
	}

	job := schedule.NewStreakJob(
		repository.NewParticipationRepository(database.DB()),
		cache.RedisJobLock{},
		clock.SystemClock{},
		loc,
	)

	s, err := schedule.Start(ctx, job, config.Cfg.IsDevelopment())
	if err != nil {
		logger.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.String("location", loc.String()),
	)

	<-ctx.Done()

	if err := s.Shutdown(); err != nil {
		logger.Logger.Error("Failed to shutdown scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
