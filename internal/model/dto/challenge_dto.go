package dto

import "time"

// ========== Challenge 相关 DTO ==========

// CreateChallengeRequest 创建挑战请求
type CreateChallengeRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty" binding:"required"`
	Tags         []string `json:"tags"`
	DurationDays int      `json:"duration_days" binding:"required"`
	PointsReward int      `json:"points_reward"`
	IsPublic     *bool    `json:"is_public"` // 不传默认公开
}

// ChallengeItem 挑战项
type ChallengeItem struct {
	CreatedAt        time.Time `json:"created_at"`
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty"`
	CreatedBy        string    `json:"created_by"`
	Tags             []string  `json:"tags"`
	DurationDays     int       `json:"duration_days"`
	PointsReward     int       `json:"points_reward"`
	ParticipantCount int64     `json:"participant_count"`
	IsPublic         bool      `json:"is_public"`
}

// ChallengeListQuery 挑战列表查询参数
type ChallengeListQuery struct {
	Category string `query:"category"`
	Cursor   string `query:"cursor"`
	Limit    int    `query:"limit"`
}
