package tracker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/model"
	"ChallengeUp/pkg/errors"
)

func active() *model.Participation {
	return &model.Participation{
		BaseModel: model.BaseModel{ID: 42},
		Status:    model.ParticipationStatusActive,
		Version:   1,
	}
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 9, 0, 0, 0, time.UTC)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 3.33, Progress(1, 30))
	assert.Equal(t, 6.67, Progress(2, 30))
	assert.Equal(t, 10.0, Progress(3, 30))
	assert.Equal(t, 100.0, Progress(30, 30))
	assert.Equal(t, 100.0, Progress(31, 30))
	assert.Equal(t, 100.0, Progress(1, 1))
	assert.Equal(t, 0.0, Progress(1, 0))
}

func TestApplyCheckInFirst(t *testing.T) {
	cur := active()
	next, note, err := ApplyCheckIn(cur, day(1), time.UTC, 30, "  first day  ")
	require.NoError(t, err)

	assert.Equal(t, 3.33, next.Progress)
	assert.Equal(t, 1, next.CheckInStreak)
	assert.Equal(t, 1, next.LongestStreak)
	assert.Equal(t, 1, next.CheckInCount)
	assert.Equal(t, "2026-01-01", next.LastCheckInDay)
	assert.Equal(t, int64(2), next.Version)
	assert.Equal(t, model.ParticipationStatusActive, next.Status)
	require.NotNil(t, note)
	assert.Equal(t, "first day", note.Note)
	assert.Equal(t, int64(42), note.ParticipationID)

	// 原记录不被修改
	assert.Equal(t, 0, cur.CheckInCount)
	assert.Empty(t, cur.LastCheckInDay)
}

func TestApplyCheckInSameDay(t *testing.T) {
	first, _, err := ApplyCheckIn(active(), day(1), time.UTC, 30, "")
	require.NoError(t, err)

	_, _, err = ApplyCheckIn(&first, day(1).Add(10*time.Hour), time.UTC, 30, "")
	assert.ErrorIs(t, err, errors.AlreadyCheckedInToday)

	// 时钟回拨
	_, _, err = ApplyCheckIn(&first, day(1).Add(-48*time.Hour), time.UTC, 30, "")
	assert.ErrorIs(t, err, errors.AlreadyCheckedInToday)
}

func TestApplyCheckInDayUsesLocation(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// UTC 16:30 与次日 UTC 01:00 在上海时区是同一天
	first, _, err := ApplyCheckIn(active(), time.Date(2026, 1, 1, 16, 30, 0, 0, time.UTC), shanghai, 30, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", first.LastCheckInDay)

	_, _, err = ApplyCheckIn(&first, time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC), shanghai, 30, "")
	assert.ErrorIs(t, err, errors.AlreadyCheckedInToday)
}

func TestApplyCheckInStreakReset(t *testing.T) {
	p := *active()
	for _, d := range []int{1, 2} {
		next, _, err := ApplyCheckIn(&p, day(d), time.UTC, 30, "")
		require.NoError(t, err)
		p = next
	}
	assert.Equal(t, 2, p.CheckInStreak)

	next, _, err := ApplyCheckIn(&p, day(4), time.UTC, 30, "")
	require.NoError(t, err)
	assert.Equal(t, 1, next.CheckInStreak)
	assert.Equal(t, 2, next.LongestStreak)
	assert.Equal(t, 10.0, next.Progress)
}

func TestApplyCheckInAfterStreakCleared(t *testing.T) {
	p := *active()
	p.LastCheckInDay = "2026-01-01"
	p.CheckInCount = 1
	p.Progress = 3.33
	p.CheckInStreak = 0 // 定时任务已清零

	next, _, err := ApplyCheckIn(&p, day(5), time.UTC, 30, "")
	require.NoError(t, err)
	assert.Equal(t, 1, next.CheckInStreak)
}

func TestApplyCheckInRejections(t *testing.T) {
	completed := active()
	completed.Status = model.ParticipationStatusCompleted
	_, _, err := ApplyCheckIn(completed, day(1), time.UTC, 30, "")
	assert.ErrorIs(t, err, errors.AlreadyCompleted)

	abandoned := active()
	abandoned.Status = model.ParticipationStatusAbandoned
	_, _, err = ApplyCheckIn(abandoned, day(1), time.UTC, 30, "")
	assert.ErrorIs(t, err, errors.ParticipationNotActive)

	_, _, err = ApplyCheckIn(active(), day(1), time.UTC, 0, "")
	assert.ErrorIs(t, err, errors.InvalidDuration)

	_, _, err = ApplyCheckIn(active(), day(1), time.UTC, 30, strings.Repeat("打", MaxNoteLength+1))
	assert.ErrorIs(t, err, errors.NoteTooLong)

	_, note, err := ApplyCheckIn(active(), day(1), time.UTC, 30, strings.Repeat("打", MaxNoteLength))
	require.NoError(t, err)
	assert.NotNil(t, note)
}

func TestApplyCheckInRefusesRegression(t *testing.T) {
	// 挑战天数被改长后，按新天数计算的进度低于已有进度
	p := active()
	p.CheckInCount = 5
	p.Progress = 50
	p.LastCheckInDay = "2026-01-01"

	_, _, err := ApplyCheckIn(p, day(2), time.UTC, 30, "")
	assert.ErrorIs(t, err, errors.ProgressRegression)
}

func TestApplyCheckInCompletes(t *testing.T) {
	p := active()
	p.CheckInCount = 2
	p.Progress = 66.67
	p.LastCheckInDay = "2026-01-02"
	p.CheckInStreak = 2

	next, _, err := ApplyCheckIn(p, day(3), time.UTC, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, next.Progress)
	assert.Equal(t, model.ParticipationStatusCompleted, next.Status)
	require.NotNil(t, next.CompletedAt)
	assert.Equal(t, day(3), *next.CompletedAt)
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderAsc, o)

	o, err = ParseOrder("desc")
	require.NoError(t, err)
	assert.Equal(t, OrderDesc, o)

	_, err = ParseOrder("sideways")
	assert.ErrorIs(t, err, errors.InvalidRequest)
}
