package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"ChallengeUp/config"
	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/middleware"
	"ChallengeUp/internal/repository"
	"ChallengeUp/internal/repository/memory"
	"ChallengeUp/internal/schedule"
	"ChallengeUp/internal/service"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/clock"
	pkgdb "ChallengeUp/pkg/database"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
	pkgmq "ChallengeUp/pkg/mq"
	pkgotel "ChallengeUp/pkg/otel"
	pkgredis "ChallengeUp/pkg/redis"
	"ChallengeUp/pkg/snowflake"
	"ChallengeUp/storage/database"
)

// Stores 进程内使用的存储实现
type Stores struct {
	Challenges     service.ChallengeStore
	Participations tracker.Store
	Locker         tracker.Locker
	Memory         bool
}

// NewStores 按 TRACKER_STORE 选择 postgres 或内存实现
func NewStores() Stores {
	if config.Cfg.TrackerStore == "memory" {
		s := memory.NewStore()
		// 单进程内存模式，锁也在进程内
		return Stores{Challenges: s, Participations: s, Locker: memory.NewLocker(), Memory: true}
	}

	db := database.DB()
	return Stores{
		Challenges:     repository.NewChallengeRepository(db),
		Participations: repository.NewParticipationRepository(db),
		Locker:         cache.NewRedisLocker(),
	}
}

// NewTracker 用配置组装 Tracker
func NewTracker(stores Stores, notifier tracker.Notifier) (*tracker.Tracker, error) {
	loc, err := config.Cfg.DayLocation()
	if err != nil {
		return nil, err
	}

	return tracker.New(tracker.Options{
		Store:        stores.Participations,
		Locker:       stores.Locker,
		Notifier:     notifier,
		Clock:        clock.SystemClock{},
		Location:     loc,
		NextID:       snowflake.NextID,
		Backend:      config.Cfg.TrackerBackend,
		LeavePolicy:  config.Cfg.TrackerLeavePolicy,
		StoreTimeout: config.Cfg.TrackerStoreTimeout,
		LockTTL:      config.Cfg.TrackerLockTTL,
	})
}

// StartLocalStreakJob 内存模式没有独立的 scheduler 进程，由 API 进程自己清零断签的连续天数。
// 非内存模式返回 nil。
func StartLocalStreakJob(ctx context.Context, stores Stores) (gocron.Scheduler, error) {
	if !stores.Memory {
		return nil, nil
	}
	resetter, ok := stores.Participations.(schedule.StreakResetter)
	if !ok {
		return nil, fmt.Errorf("memory store %T cannot reset streaks", stores.Participations)
	}
	loc, err := config.Cfg.DayLocation()
	if err != nil {
		return nil, err
	}

	// 单进程，不需要分布式锁
	job := schedule.NewStreakJob(resetter, nil, clock.SystemClock{}, loc)
	return schedule.Start(ctx, job, config.Cfg.IsDevelopment())
}

// Telemetry 初始化链路追踪和各层指标，未启用时返回空的关闭函数
func Telemetry(ctx context.Context, component string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !config.Cfg.OTelEnabled {
		return noop, nil
	}

	shutdown, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.Config{
		ServiceName:    config.Cfg.ServiceName + "-" + component,
		ServiceVersion: config.Cfg.Version,
		Environment:    config.Cfg.Environment,
		OTLPEndpoint:   config.Cfg.OTelEndpoint,
		SampleRatio:    config.Cfg.OTelSampleRatio,
	})
	if err != nil {
		return noop, fmt.Errorf("init opentelemetry: %w", err)
	}

	meter := otel.Meter(config.Cfg.ServiceName)
	inits := []struct {
		name string
		fn   func() error
	}{
		{"tracker", metrics.InitMetrics},
		{"database", func() error { return pkgdb.InitDatabaseMetrics(meter) }},
		{"redis", func() error { return pkgredis.InitRedisMetrics(meter) }},
		{"mq", func() error { return pkgmq.InitMQMetrics(meter) }},
		{"http", func() error { return middleware.InitMetrics(meter) }},
	}
	for _, in := range inits {
		// 指标失败不影响启动
		if err := in.fn(); err != nil {
			logger.Logger.Warn("Failed to init metrics", zap.String("metrics", in.name), zap.Error(err))
		}
	}

	return shutdown, nil
}
