package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	appconfig "ChallengeUp/config"
	"ChallengeUp/internal/bootstrap"
	"ChallengeUp/internal/middleware"
	"ChallengeUp/internal/queue"
	"ChallengeUp/internal/router"
	"ChallengeUp/internal/service"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/snowflake"
	"ChallengeUp/pkg/token"
	"ChallengeUp/storage"
)

func main() {
	// 日志部分
	logger.Init("api")
	defer logger.Sync()

	if err := appconfig.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
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

	shutdownTelemetry, err := bootstrap.Telemetry(ctx, "api")
	if err != nil {
		logger.Logger.Warn("OpenTelemetry disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Logger.Error("Failed to flush telemetry", zap.Error(err))
		}
	}()

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Logger.Warn("Storage closed with errors", zap.Error(err))
		}
	}()

	if err := snowflake.Init(appconfig.Cfg.SnowflakeMachineID, appconfig.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	stores := bootstrap.NewStores()
	t, err := bootstrap.NewTracker(stores, queue.NewPublisher())
	if err != nil {
		logger.Logger.Fatal("Failed to build participation tracker", zap.Error(err))
	}

	localJobs, err := bootstrap.StartLocalStreakJob(ctx, stores)
	if err != nil {
		logger.Logger.Fatal("Failed to start in-process streak job", zap.Error(err))
	}
	if localJobs != nil {
		defer func() { _ = localJobs.Shutdown() }()
	}

	service.Init(service.Deps{
		Challenges:  stores.Challenges,
		Cache:       service.RedisChallengeCache{},
		Tracker:     t,
		Leaderboard: service.RedisLeaderboard{},
		NextID:      snowflake.NextID,
	})

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	// 初始化中间件
	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	logger.Logger.Info("Server starting",
		zap.String("service", appconfig.Cfg.ServiceName),
		zap.String("port", appconfig.Cfg.ServerPort),
		zap.String("environment", appconfig.Cfg.Environment),
		zap.String("tracker_backend", t.Backend()),
		zap.String("tracker_store", appconfig.Cfg.TrackerStore),
		zap.String("day_location", t.Location().String()),
	)

	addr := net.JoinHostPort(appconfig.Cfg.ServerHost, appconfig.Cfg.ServerPort)
	opts := []config.Option{server.WithHostPorts(addr)}

	var tracerMw app.HandlerFunc
	if appconfig.Cfg.OTelEnabled {
		var tracer config.Option
		tracer, tracerMw = middleware.NewServerTracerConfig()
		opts = append(opts, tracer)
	}

	h := server.Default(opts...)
	if tracerMw != nil {
		h.Use(tracerMw)
	}

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
