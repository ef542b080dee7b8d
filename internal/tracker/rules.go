package tracker

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"ChallengeUp/internal/model"
	"ChallengeUp/pkg/errors"
)

// MaxNoteLength 单条打卡备注的最大字符数
const MaxNoteLength = 500

// DayKey 返回 t 在 loc 时区下的日期 YYYY-MM-DD
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// dayGap 两个日期之间相差的天数
func dayGap(from, to string) (int, error) {
	a, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return 0, err
	}
	b, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// Progress 第 count 次打卡后的进度，保留两位小数，封顶 100
func Progress(count, durationDays int) float64 {
	if durationDays <= 0 {
		return 0
	}
	if count >= durationDays {
		return 100
	}
	p := float64(count) * 100 / float64(durationDays)
	return math.Min(math.Round(p*100)/100, 100)
}

// ApplyCheckIn 计算一次打卡后的状态，不做任何 IO。
// 返回的记录 Version 已加一，备注为空时 note 为 nil。
func ApplyCheckIn(cur *model.Participation, now time.Time, loc *time.Location, durationDays int, rawNote string) (model.Participation, *model.CheckInNote, error) {
	switch cur.Status {
	case model.ParticipationStatusCompleted:
		return model.Participation{}, nil, errors.AlreadyCompleted
	case model.ParticipationStatusAbandoned:
		return model.Participation{}, nil, errors.ParticipationNotActive
	case model.ParticipationStatusActive:
	default:
		return model.Participation{}, nil, errors.ParticipationNotActive
	}

	if durationDays <= 0 {
		return model.Participation{}, nil, errors.InvalidDuration
	}

	text := strings.TrimSpace(rawNote)
	if utf8.RuneCountInString(text) > MaxNoteLength {
		return model.Participation{}, nil, errors.NoteTooLong
	}

	// 时钟回拨视同当天已打卡
	today := DayKey(now, loc)
	if cur.LastCheckInDay != "" && today <= cur.LastCheckInDay {
		return model.Participation{}, nil, errors.AlreadyCheckedInToday
	}

	count := cur.CheckInCount + 1
	progress := Progress(count, durationDays)
	if progress < cur.Progress {
		return model.Participation{}, nil, errors.ProgressRegression
	}

	streak := 1
	if cur.LastCheckInDay == "" {
		streak = cur.CheckInStreak + 1
	} else {
		gap, err := dayGap(cur.LastCheckInDay, today)
		if err != nil {
			return model.Participation{}, nil, errors.WithCause(errors.InvalidRequest, err)
		}
		if gap == 1 {
			streak = cur.CheckInStreak + 1
		}
	}

	next := cur.Clone()
	at := now
	next.Progress = progress
	next.CheckInCount = count
	next.CheckInStreak = streak
	next.LongestStreak = max(cur.LongestStreak, streak)
	next.LastCheckIn = &at
	next.LastCheckInDay = today
	next.UpdatedAt = now
	next.Version = cur.Version + 1

	if progress >= 100 {
		next.Status = model.ParticipationStatusCompleted
		next.CompletedAt = &at
	}

	var note *model.CheckInNote
	if text != "" {
		note = &model.CheckInNote{
			ParticipationID: cur.ID,
			NotedAt:         now,
			Note:            text,
		}
		next.CheckInNotes = append(next.CheckInNotes, *note)
	}

	return next, note, nil
}
