package schedule

// 连续天数重置：每天 00:05 把前一天没有打卡的 active 记录 streak 清零

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/clock"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
)

const (
	streakLockKey = "schedule:streak-reset"
	streakLockTTL = 10 * time.Minute
	streakRunTTL  = 5 * time.Minute
)

// StreakResetter 由 gorm 仓储和内存存储实现
type StreakResetter interface {
	ResetBrokenStreaks(ctx context.Context, beforeDay string) (int64, error)
}

// JobLock 多实例部署时保证同一时刻只有一个调度器执行
type JobLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type StreakJob struct {
	store StreakResetter
	lock  JobLock
	clock clock.Clock
	loc   *time.Location

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func NewStreakJob(store StreakResetter, lock JobLock, clk clock.Clock, loc *time.Location) *StreakJob {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StreakJob{store: store, lock: lock, clock: clk, loc: loc}
}

// Run 执行一次重置，返回被清零的记录数。已有执行中的任务或拿不到锁时直接跳过。
func (j *StreakJob) Run(ctx context.Context) (int64, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		logger.Logger.Info("Streak reset job already running, skipping")
		return 0, nil
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	if j.lock != nil {
		token, ok, err := j.lock.TryLock(ctx, streakLockKey, streakLockTTL)
		if err != nil {
			return 0, fmt.Errorf("acquire streak reset lock: %w", err)
		}
		if !ok {
			logger.Logger.Info("Streak reset job held by another instance, skipping")
			return 0, nil
		}
		defer func() {
			if err := j.lock.Unlock(context.WithoutCancel(ctx), streakLockKey, token); err != nil {
				logger.Logger.Warn("Failed to release streak reset lock", zap.Error(err))
			}
		}()
	}

	now := j.clock.Now()
	yesterday := tracker.DayKey(now.In(j.loc).AddDate(0, 0, -1), j.loc)

	n, err := j.store.ResetBrokenStreaks(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("reset broken streaks before %s: %w", yesterday, err)
	}

	j.mu.Lock()
	j.lastRun = now
	j.mu.Unlock()

	metrics.RecordStreakResets(ctx, n)
	logger.Logger.Info("Streak reset job finished",
		zap.String("before_day", yesterday),
		zap.Int64("reset", n),
		zap.Duration("elapsed", j.clock.Now().Sub(now)),
	)
	return n, nil
}

// Start 注册定时任务并启动调度器，development 环境每分钟执行一次
func Start(ctx context.Context, job *StreakJob, development bool) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(job.loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	definition := gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0)))
	if development {
		definition = gocron.DurationJob(time.Minute)
		logger.Logger.Info("Streak reset job running in development mode with 1m interval")
	}

	_, err = s.NewJob(
		definition,
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, streakRunTTL)
			defer cancel()
			if _, err := job.Run(runCtx); err != nil {
				logger.Logger.Error("Streak reset job failed", zap.Error(err))
			}
		}),
		gocron.WithName("streak-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("register streak reset job: %w", err)
	}

	s.Start()
	return s, nil
}
