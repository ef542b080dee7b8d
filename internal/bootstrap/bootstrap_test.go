package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/config"
	"ChallengeUp/internal/tracker"
)

func TestMemoryStoresBuildTracker(t *testing.T) {
	prev := config.Cfg
	t.Cleanup(func() { config.Cfg = prev })

	config.Cfg.TrackerStore = "memory"
	config.Cfg.TrackerBackend = tracker.BackendAuto
	config.Cfg.TrackerLeavePolicy = tracker.LeaveAbandon
	config.Cfg.CheckInTimezone = "Asia/Shanghai"

	stores := NewStores()
	require.True(t, stores.Memory)

	tr, err := NewTracker(stores, nil)
	require.NoError(t, err)
	// 内存存储支持条件更新
	assert.Equal(t, tracker.BackendAtomic, tr.Backend())
	assert.Equal(t, "Asia/Shanghai", tr.Location().String())

	config.Cfg.TrackerBackend = tracker.BackendLocking
	tr, err = NewTracker(stores, nil)
	require.NoError(t, err)
	assert.Equal(t, tracker.BackendLocking, tr.Backend())
}

func TestTelemetryDisabled(t *testing.T) {
	prev := config.Cfg
	t.Cleanup(func() { config.Cfg = prev })
	config.Cfg.OTelEnabled = false

	shutdown, err := Telemetry(context.Background(), "api")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestLocalStreakJobOnlyInMemoryMode(t *testing.T) {
	prev := config.Cfg
	t.Cleanup(func() { config.Cfg = prev })
	config.Cfg.TrackerStore = "memory"
	config.Cfg.CheckInTimezone = "UTC"
	config.Cfg.Environment = "production"

	s, err := StartLocalStreakJob(context.Background(), NewStores())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, s.Jobs(), 1)
	assert.NoError(t, s.Shutdown())

	// postgres 模式由 cmd/scheduler 负责
	s, err = StartLocalStreakJob(context.Background(), Stores{})
	require.NoError(t, err)
	assert.Nil(t, s)
}
