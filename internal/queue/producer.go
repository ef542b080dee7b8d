package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
	"ChallengeUp/pkg/snowflake"
	"ChallengeUp/storage/mq"
)

// Publisher 把参与变更事件发布到 events.topic，实现 tracker.Notifier
type Publisher struct{}

var _ tracker.Notifier = Publisher{}

func NewPublisher() Publisher {
	return Publisher{}
}

func (Publisher) Notify(ctx context.Context, event model.ParticipationEvent) error {
	return PublishParticipationEvent(ctx, event)
}

// PublishParticipationEvent 发布参与事件，MessageID 为空时生成
func PublishParticipationEvent(ctx context.Context, event model.ParticipationEvent) error {
	if event.MessageID == "" {
		id, err := snowflake.NextIDString()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		event.MessageID = id
	}

	routingKey := event.Kind.RoutingKey()
	err := mq.PublishMessage(ctx, mq.EventsExchange, routingKey, event.MessageID, event)
	if err != nil {
		metrics.RecordEventPublished(ctx, routingKey, "error")
		logger.Logger.Error("Failed to publish participation event",
			zap.String("message_id", event.MessageID),
			zap.String("routing_key", routingKey),
			zap.Int64("challenge_id", event.ChallengeID),
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordEventPublished(ctx, routingKey, "ok")
	logger.Logger.Debug("Published participation event",
		zap.String("message_id", event.MessageID),
		zap.String("routing_key", routingKey),
		zap.Int64("challenge_id", event.ChallengeID),
		zap.Int64("user_id", event.UserID),
	)
	return nil
}
