package tracker

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"ChallengeUp/internal/model"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
)

// maxSwapAttempts 条件更新失败后的最大尝试次数
const maxSwapAttempts = 3

type checkInBackend interface {
	name() string
	checkIn(ctx context.Context, ref Ref, durationDays int, note string) (*model.Participation, error)
}

// atomicBackend 读取、计算后按版本号条件写入，冲突时重读重算
type atomicBackend struct {
	t     *Tracker
	store ConditionalStore
}

func (b *atomicBackend) name() string { return BackendAtomic }

func (b *atomicBackend) checkIn(ctx context.Context, ref Ref, durationDays int, note string) (*model.Participation, error) {
	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		cur, err := b.t.find(ctx, ref)
		if err != nil {
			return nil, err
		}

		next, entry, err := ApplyCheckIn(cur, b.t.clock.Now(), b.t.loc, durationDays, note)
		if err != nil {
			return nil, err
		}

		var swapped bool
		err = b.t.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			swapped, err = b.store.CompareAndSwap(ctx, cur.Version, &next, entry)
			return err
		})
		if err != nil {
			return nil, b.t.storeError("compare and swap", ref, err)
		}
		if swapped {
			return &next, nil
		}

		metrics.RecordCheckInRetry(ctx)
		logger.Logger.Debug("Check-in lost a concurrent write, retrying",
			zap.String("ref", ref.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, errors.CheckInConflict
}

// lockingBackend 持有参与记录级别的锁完成读改写
type lockingBackend struct {
	t      *Tracker
	locker Locker
}

func (b *lockingBackend) name() string { return BackendLocking }

// acquire 在存储超时内拿到参与记录锁
func (b *lockingBackend) acquire(ctx context.Context, ref Ref) (func(), error) {
	var unlock func(context.Context) error
	err := b.t.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		unlock, err = b.locker.Lock(ctx, LockKey(ref), b.t.lockTTL)
		return err
	})
	if err != nil {
		if stderrors.Is(err, ErrLockNotAcquired) {
			return nil, errors.CheckInConflict
		}
		return nil, b.t.storeError("acquire lock", ref, err)
	}

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Logger.Warn("Failed to release participation lock",
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
		}
	}, nil
}

func (b *lockingBackend) checkIn(ctx context.Context, ref Ref, durationDays int, note string) (*model.Participation, error) {
	release, err := b.acquire(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer release()

	cur, err := b.t.find(ctx, ref)
	if err != nil {
		return nil, err
	}

	next, entry, err := ApplyCheckIn(cur, b.t.clock.Now(), b.t.loc, durationDays, note)
	if err != nil {
		return nil, err
	}

	err = b.t.withTimeout(ctx, func(ctx context.Context) error {
		return b.t.store.Replace(ctx, &next, entry)
	})
	switch {
	case err == nil:
		return &next, nil
	case stderrors.Is(err, ErrNotFound):
		return nil, errors.ParticipationNotFound
	case stderrors.Is(err, ErrNotActive):
		// 锁外的退出已经提交
		return nil, errors.ParticipationNotActive
	default:
		return nil, b.t.storeError("replace participation", ref, err)
	}
}

// LockKey 参与记录锁的键
func LockKey(ref Ref) string {
	return "participation:" + ref.String()
}
