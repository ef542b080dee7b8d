package model

import "time"

// ParticipationStatus 参与状态枚举
type ParticipationStatus string

const (
	ParticipationStatusActive    ParticipationStatus = "active"    // 进行中
	ParticipationStatusCompleted ParticipationStatus = "completed" // 已完成，终态
	ParticipationStatusAbandoned ParticipationStatus = "abandoned" // 已退出，终态
)

// Participation 用户参与挑战的记录，(challenge_id, user_id) 唯一
type Participation struct {
	BaseModel
	ChallengeID    int64               `gorm:"not null;uniqueIndex:idx_participations_challenge_user" json:"challenge_id"`
	UserID         int64               `gorm:"not null;uniqueIndex:idx_participations_challenge_user;index:idx_participations_user_status" json:"user_id"`
	Status         ParticipationStatus `gorm:"type:varchar(16);not null;index:idx_participations_user_status;index:idx_participations_status_day" json:"status"`
	Progress       float64             `gorm:"not null;default:0" json:"progress"`
	StartedAt      time.Time           `gorm:"type:timestamptz;not null" json:"started_at"`
	LastCheckIn    *time.Time          `gorm:"type:timestamptz" json:"last_check_in,omitempty"`
	LastCheckInDay string              `gorm:"type:varchar(10);not null;index:idx_participations_status_day" json:"last_check_in_day,omitempty"` // YYYY-MM-DD
	CheckInStreak  int                 `gorm:"not null;default:0" json:"check_in_streak"`
	LongestStreak  int                 `gorm:"not null;default:0" json:"longest_streak"`
	CheckInCount   int                 `gorm:"not null;default:0" json:"check_in_count"`
	CompletedAt    *time.Time          `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	AbandonedAt    *time.Time          `gorm:"type:timestamptz" json:"abandoned_at,omitempty"`
	Version        int64               `gorm:"not null;default:0" json:"version"`
	CheckInNotes   []CheckInNote       `gorm:"foreignKey:ParticipationID;constraint:OnDelete:CASCADE" json:"check_in_notes,omitempty"`
}

// TableName 指定表名
func (Participation) TableName() string {
	return "participations"
}

// CheckInNote 打卡备注，只追加
type CheckInNote struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	ParticipationID int64     `gorm:"not null;index" json:"-"`
	NotedAt         time.Time `gorm:"type:timestamptz;not null" json:"date"`
	Note            string    `gorm:"type:text;not null" json:"note"`
}

// TableName 指定表名
func (CheckInNote) TableName() string {
	return "check_in_notes"
}

// Clone 深拷贝，内存存储返回副本避免调用方修改内部状态
func (p *Participation) Clone() Participation {
	out := *p
	out.LastCheckIn = cloneTime(p.LastCheckIn)
	out.CompletedAt = cloneTime(p.CompletedAt)
	out.AbandonedAt = cloneTime(p.AbandonedAt)
	if p.CheckInNotes != nil {
		out.CheckInNotes = make([]CheckInNote, len(p.CheckInNotes))
		copy(out.CheckInNotes, p.CheckInNotes)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
