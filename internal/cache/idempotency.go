package cache

import (
	"context"
	"fmt"
	"time"

	"ChallengeUp/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"

	processingTTL = 10 * time.Minute
	processedTTL  = 48 * time.Hour
)

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)

	result, err := redis.Client().SetNX(ctx, key, "processing", processingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// MarkMessageProcessed 处理成功后延长标记，覆盖重投窗口
func MarkMessageProcessed(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if err := redis.Client().Set(ctx, key, "done", processedTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark message as processed: %w", err)
	}
	return nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if err := redis.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to unmark message processing: %w", err)
	}
	return nil
}
