package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/repository/memory"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/clock"
)

type fakeLock struct {
	held     bool
	released int
}

func (l *fakeLock) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token", true, nil
}

func (l *fakeLock) Unlock(context.Context, string, string) error {
	l.held = false
	l.released++
	return nil
}

func TestStreakJobResetsSkippedDays(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.NewManual(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))

	var seq int64
	tr, err := tracker.New(tracker.Options{
		Store:  store,
		Clock:  clk,
		NextID: func() (int64, error) { seq++; return seq, nil },
	})
	require.NoError(t, err)

	// 用户 1 在 2 月 1 日打卡，用户 2 在 2 月 1 日和 2 日打卡
	for _, uid := range []int64{1, 2} {
		_, err := tr.Join(ctx, 10, uid)
		require.NoError(t, err)
		_, err = tr.CheckIn(ctx, tracker.Ref{ChallengeID: 10, UserID: uid}, 30, "")
		require.NoError(t, err)
	}
	clk.Advance(24 * time.Hour)
	_, err = tr.CheckIn(ctx, tracker.Ref{ChallengeID: 10, UserID: 2}, 30, "")
	require.NoError(t, err)

	// 2 月 3 日 00:05 执行：昨天是 2 月 2 日，用户 1 断签
	clk.Set(time.Date(2026, 2, 3, 0, 5, 0, 0, time.UTC))
	lock := &fakeLock{}
	job := NewStreakJob(store, lock, clk, time.UTC)

	n, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, lock.released)

	p1, err := tr.Get(ctx, tracker.Ref{ChallengeID: 10, UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, p1.CheckInStreak)
	assert.Equal(t, 1, p1.LongestStreak)
	assert.Equal(t, model.ParticipationStatusActive, p1.Status)

	p2, err := tr.Get(ctx, tracker.Ref{ChallengeID: 10, UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, p2.CheckInStreak)

	// 断签后再次打卡从 1 开始
	p1, err = tr.CheckIn(ctx, tracker.Ref{ChallengeID: 10, UserID: 1}, 30, "")
	require.NoError(t, err)
	assert.Equal(t, 1, p1.CheckInStreak)
	assert.Equal(t, 2, p1.CheckInCount)
}

func TestStreakJobSkipsWhenLockHeld(t *testing.T) {
	store := memory.NewStore()
	lock := &fakeLock{held: true}
	job := NewStreakJob(store, lock, clock.NewManual(time.Now()), time.UTC)

	n, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, lock.released)
}
