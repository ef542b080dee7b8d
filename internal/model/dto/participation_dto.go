package dto

import "time"

// ========== Participation 相关 DTO ==========

// ParticipationItem 参与记录
type ParticipationItem struct {
	StartedAt     time.Time  `json:"started_at"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	AbandonedAt   *time.Time `json:"abandoned_at,omitempty"`
	ID            string     `json:"id"`
	ChallengeID   string     `json:"challenge_id"`
	UserID        string     `json:"user_id"`
	Status        string     `json:"status"`
	Progress      float64    `json:"progress"`
	CheckInStreak int        `json:"check_in_streak"`
	LongestStreak int        `json:"longest_streak"`
	CheckInCount  int        `json:"check_in_count"`
}

// CheckInRequest 打卡请求
type CheckInRequest struct {
	Note string `json:"note"`
}

// CheckInResponse 打卡响应
type CheckInResponse struct {
	Participation ParticipationItem `json:"participation"`
	Completed     bool              `json:"completed"`
}

// CheckInNoteItem 打卡备注
type CheckInNoteItem struct {
	Date time.Time `json:"date"`
	Note string    `json:"note"`
}

// CheckInHistoryQuery 打卡历史查询参数
type CheckInHistoryQuery struct {
	Order string `query:"order"` // asc, desc
}

// ParticipationListQuery 我的参与列表查询参数
type ParticipationListQuery struct {
	Status string `query:"status"`
}

// LeaderboardQuery 排行榜查询参数
type LeaderboardQuery struct {
	Limit int `query:"limit"`
}

// LeaderboardEntry 排行榜项
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Rank   int    `json:"rank"`
	Points int64  `json:"points"`
}
