package mq

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"ChallengeUp/config"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	pkgmq "ChallengeUp/pkg/mq"
)

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 阻塞消费直到 ctx 结束或 channel 关闭。
// 处理失败 nack 重新入队，SkipMessageError 直接 ack。
func Consume(ctx context.Context, opts ConsumeOptions) error {
	conn := Connection()
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", opts.Queue)
			}
			handleDelivery(ctx, opts, msg)
		}
	}
}

func handleDelivery(ctx context.Context, opts ConsumeOptions, msg amqp.Delivery) {
	started := time.Now()
	msgCtx, span := pkgmq.StartDeliverySpan(ctx, config.Cfg.ServiceName, opts.Queue, msg)

	err := opts.Handler(msgCtx, msg.Body)

	var skip *errors.SkipMessageError
	switch {
	case err == nil:
		pkgmq.EndDeliverySpan(msgCtx, span, msg.RoutingKey, "ack", started, nil)
		ack(msg)
	case stderrors.As(err, &skip):
		logger.Logger.Info("Skipping message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", msg.MessageId),
			zap.String("reason", skip.Reason),
		)
		pkgmq.EndDeliverySpan(msgCtx, span, msg.RoutingKey, "skip", started, nil)
		ack(msg)
	default:
		logger.Logger.Error("Failed to process message",
			zap.String("queue", opts.Queue),
			zap.String("consumer_tag", opts.ConsumerTag),
			zap.String("message_id", msg.MessageId),
			zap.Error(err),
		)
		pkgmq.EndDeliverySpan(msgCtx, span, msg.RoutingKey, "requeue", started, err)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.Logger.Error("Failed to nack message", zap.Error(nackErr))
		}
	}
}

func ack(msg amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		logger.Logger.Error("Failed to ack message", zap.Error(err))
	}
}
