package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
)

// dryRunDB 只生成 SQL，不连接数据库
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=cup dbname=cup sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

func sampleParticipation() *model.Participation {
	now := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	return &model.Participation{
		BaseModel:      model.BaseModel{ID: 42, UpdatedAt: now},
		ChallengeID:    7,
		UserID:         9,
		Status:         model.ParticipationStatusActive,
		Progress:       6.67,
		LastCheckIn:    &now,
		LastCheckInDay: "2026-01-02",
		CheckInStreak:  2,
		LongestStreak:  2,
		CheckInCount:   2,
		Version:        4,
	}
}

func TestCheckInColumnsKeepsZeroValues(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Participation{
		Status:         model.ParticipationStatusActive,
		LastCheckIn:    &now,
		LastCheckInDay: "2026-01-01",
		CheckInStreak:  0,
		Version:        3,
	}

	cols := checkInColumns(p)
	assert.Contains(t, cols, "check_in_streak")
	assert.Equal(t, 0, cols["check_in_streak"])
	assert.Equal(t, int64(3), cols["version"])
	assert.Nil(t, cols["completed_at"])
	assert.NotContains(t, cols, "started_at")
	assert.NotContains(t, cols, "abandoned_at")
}

func TestCompareAndSwapGuardsVersionAndStatus(t *testing.T) {
	db := dryRunDB(t)
	next := sampleParticipation()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return guardedCheckIn(tx, next, 3)
	})

	assert.Contains(t, sql, `UPDATE "participations" SET`)
	assert.Contains(t, sql, "id = 42")
	assert.Contains(t, sql, "status = 'active'")
	assert.Contains(t, sql, "version = 3")
	assert.Contains(t, sql, `"check_in_streak"=2`)
	assert.Contains(t, sql, `"version"=4`)
}

func TestReplaceOnlyWritesActiveRows(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return guardedCheckIn(tx, sampleParticipation(), 0)
	})

	assert.Contains(t, sql, `WHERE id = 42 AND status = 'active'`)
	assert.NotContains(t, sql, "version =")
}

func TestAbandonOnlyFromActive(t *testing.T) {
	db := dryRunDB(t)
	at := time.Date(2026, 1, 3, 8, 0, 0, 0, time.UTC)
	p := sampleParticipation()
	p.Status = model.ParticipationStatusAbandoned
	p.AbandonedAt = &at

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return markAbandoned(tx, p)
	})

	assert.Contains(t, sql, `"status"='abandoned'`)
	assert.Contains(t, sql, `WHERE id = 42 AND status = 'active'`)
}

func TestParticipantCountAdjustment(t *testing.T) {
	db := dryRunDB(t)

	inc := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return adjustParticipantCount(tx, 7, 1)
	})
	assert.Contains(t, inc, `UPDATE "challenges" SET "participant_count"=GREATEST(participant_count + 1, 0)`)
	assert.Contains(t, inc, `WHERE id = 7`)

	// 人数不会减成负数
	dec := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return adjustParticipantCount(tx, 7, -1)
	})
	assert.Contains(t, dec, `GREATEST(participant_count + -1, 0)`)
}

func TestLookupLocksRow(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var p model.Participation
		return lockByRef(tx, tracker.Ref{ChallengeID: 7, UserID: 9}).Take(&p)
	})

	assert.Contains(t, sql, `FROM "participations" WHERE challenge_id = 7 AND user_id = 9`)
	assert.Contains(t, sql, "FOR UPDATE")
}

func TestDeleteNotesByParticipation(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return deleteNotes(tx, 42)
	})

	assert.Contains(t, sql, `DELETE FROM "check_in_notes" WHERE participation_id = 42`)
}

func TestResetBrokenStreaksPredicate(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return resetBrokenStreaks(tx, "2026-01-01")
	})

	assert.Contains(t, sql, `"check_in_streak"=0`)
	assert.Contains(t, sql, `"version"=version + 1`)
	assert.Contains(t, sql, `status = 'active' AND check_in_streak > 0`)
	assert.Contains(t, sql, `last_check_in_day < '2026-01-01'`)
}
