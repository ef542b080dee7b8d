package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/model"
	"ChallengeUp/internal/repository"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
	"ChallengeUp/storage/mq"
)

// 连续打卡里程碑
var milestoneStreaks = []int{7, 30, 100, 365}

// ChallengeLookup 读取挑战积分配置
type ChallengeLookup interface {
	GetChallenge(ctx context.Context, id int64) (*model.Challenge, error)
}

// MessageMarks 消息幂等标记
type MessageMarks interface {
	TryMarkProcessing(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
	UnmarkProcessing(ctx context.Context, messageID string) error
}

type redisMarks struct{}

func (redisMarks) TryMarkProcessing(ctx context.Context, id string) (bool, error) {
	return cache.TryMarkMessageProcessing(ctx, id)
}

func (redisMarks) MarkProcessed(ctx context.Context, id string) error {
	return cache.MarkMessageProcessed(ctx, id)
}

func (redisMarks) UnmarkProcessing(ctx context.Context, id string) error {
	return cache.UnmarkMessageProcessing(ctx, id)
}

// EventHandler 处理 participation.events 队列中的事件
type EventHandler struct {
	Challenges ChallengeLookup
	Marks      MessageMarks
	AddPoints  func(ctx context.Context, userID int64, points int) error
	Invalidate func(ctx context.Context, challengeID int64) error
	Publish    func(ctx context.Context, event model.ParticipationEvent) error
}

// NewEventHandler 默认使用 redis 标记、排行榜和挑战缓存
func NewEventHandler(challenges ChallengeLookup) *EventHandler {
	return &EventHandler{
		Challenges: challenges,
		Marks:      redisMarks{},
		AddPoints:  cache.AddPoints,
		Invalidate: cache.InvalidateChallenge,
		Publish:    PublishParticipationEvent,
	}
}

// StartParticipationConsumer 启动参与事件消费者，阻塞直到 ctx 结束
func StartParticipationConsumer(ctx context.Context, h *EventHandler) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.ParticipationQueue,
		ConsumerTag:   "participation_event_consumer",
		PrefetchCount: 20,
		Handler:       h.Handle,
	})
}

// Handle 解析并分发一条消息。返回 SkipMessageError 表示重复消息直接 ack。
func (h *EventHandler) Handle(ctx context.Context, body []byte) error {
	var event model.ParticipationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// 格式错误的消息重试也不会成功
		metrics.RecordEventConsumed(ctx, "unknown", "malformed")
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed participation event: %v", err)}
	}

	if event.MessageID != "" {
		first, err := h.Marks.TryMarkProcessing(ctx, event.MessageID)
		if err != nil {
			// 标记失败继续处理，可能重复处理
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", event.MessageID),
				zap.Error(err),
			)
		} else if !first {
			metrics.RecordEventConsumed(ctx, string(event.Kind), "duplicate")
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", event.MessageID)}
		}
	}

	if err := h.dispatch(ctx, event); err != nil {
		metrics.RecordEventConsumed(ctx, string(event.Kind), "error")
		if event.MessageID != "" {
			if unmarkErr := h.Marks.UnmarkProcessing(ctx, event.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", event.MessageID),
					zap.Error(unmarkErr),
				)
			}
		}
		return err
	}

	metrics.RecordEventConsumed(ctx, string(event.Kind), "ok")
	if event.MessageID != "" {
		if err := h.Marks.MarkProcessed(ctx, event.MessageID); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", event.MessageID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (h *EventHandler) dispatch(ctx context.Context, event model.ParticipationEvent) error {
	switch event.Kind {
	case model.EventCompleted:
		return h.awardPoints(ctx, event)
	case model.EventCheckedIn:
		return h.checkMilestone(ctx, event)
	case model.EventJoined, model.EventLeft:
		// 参与人数变化，挑战详情缓存失效
		if err := h.Invalidate(ctx, event.ChallengeID); err != nil {
			logger.Logger.Warn("Failed to invalidate challenge cache",
				zap.Int64("challenge_id", event.ChallengeID),
				zap.Error(err),
			)
		}
		return nil
	default:
		return nil
	}
}

func (h *EventHandler) awardPoints(ctx context.Context, event model.ParticipationEvent) error {
	challenge, err := h.Challenges.GetChallenge(ctx, event.ChallengeID)
	if err != nil {
		if stderrors.Is(err, repository.ErrChallengeNotFound) {
			logger.Logger.Warn("Completed challenge no longer exists",
				zap.Int64("challenge_id", event.ChallengeID),
				zap.Int64("user_id", event.UserID),
			)
			return nil
		}
		return fmt.Errorf("load challenge %d: %w", event.ChallengeID, err)
	}

	if err := h.AddPoints(ctx, event.UserID, challenge.PointsReward); err != nil {
		return fmt.Errorf("add points for user %d: %w", event.UserID, err)
	}

	logger.Logger.Info("Challenge completed, points awarded",
		zap.Int64("challenge_id", event.ChallengeID),
		zap.Int64("user_id", event.UserID),
		zap.Int("points", challenge.PointsReward),
	)
	return nil
}

func (h *EventHandler) checkMilestone(ctx context.Context, event model.ParticipationEvent) error {
	if !slices.Contains(milestoneStreaks, event.Streak) {
		return nil
	}

	logger.Logger.Info("Streak milestone reached",
		zap.Int64("challenge_id", event.ChallengeID),
		zap.Int64("user_id", event.UserID),
		zap.Int("streak", event.Streak),
	)

	milestone := event
	milestone.Kind = model.EventMilestone
	milestone.MessageID = ""
	if event.MessageID != "" {
		// 由原消息派生，重投时生成相同 ID
		milestone.MessageID = event.MessageID + ":milestone:" + strconv.Itoa(event.Streak)
	}
	return h.Publish(ctx, milestone)
}
