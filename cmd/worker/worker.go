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
	"ChallengeUp/internal/queue"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/snowflake"
	"ChallengeUp/storage"
)

func main() {

	logger.Init("worker")
	defer logger.Sync()

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
	}
	// 内存存储只在 API 进程内可见，worker 无法查到挑战积分
	if config.Cfg.TrackerStore == "memory" {
		logger.Logger.Fatal("Worker requires TRACKER_STORE=postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownTelemetry, err := bootstrap.Telemetry(ctx, "worker")
	if err != nil {
		logger.Logger.Warn("OpenTelemetry disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Logger.Warn("Storage closed with errors", zap.Error(err))
		}
	}()

	// 里程碑事件需要生成消息 ID
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	stores := bootstrap.NewStores()

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	if err := queue.StartParticipationConsumer(ctx, queue.NewEventHandler(stores.Challenges)); err != nil {
		logger.Logger.Error("Participation consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
