package model

import "time"

// ParticipationEventKind 参与变更事件类型
type ParticipationEventKind string

const (
	EventJoined    ParticipationEventKind = "joined"
	EventCheckedIn ParticipationEventKind = "checked_in"
	EventCompleted ParticipationEventKind = "completed"
	EventLeft      ParticipationEventKind = "left"
	EventMilestone ParticipationEventKind = "milestone" // 由 worker 派生
)

// RoutingKey 对应 events.topic 上的路由键
func (k ParticipationEventKind) RoutingKey() string {
	return "participation." + string(k)
}

// ParticipationEvent 参与变更事件，提交成功后发布
type ParticipationEvent struct {
	OccurredAt      time.Time              `json:"occurred_at"`
	MessageID       string                 `json:"message_id"` // 消息唯一ID，用于幂等性检查
	Kind            ParticipationEventKind `json:"kind"`
	Status          ParticipationStatus    `json:"status"`
	ParticipationID int64                  `json:"participation_id"`
	ChallengeID     int64                  `json:"challenge_id"`
	UserID          int64                  `json:"user_id"`
	Progress        float64                `json:"progress"`
	Streak          int                    `json:"streak"`
}

// NewParticipationEvent 从参与记录快照生成事件，MessageID 由发布方填充
func NewParticipationEvent(kind ParticipationEventKind, p *Participation, at time.Time) ParticipationEvent {
	return ParticipationEvent{
		OccurredAt:      at,
		Kind:            kind,
		Status:          p.Status,
		ParticipationID: p.ID,
		ChallengeID:     p.ChallengeID,
		UserID:          p.UserID,
		Progress:        p.Progress,
		Streak:          p.CheckInStreak,
	}
}
