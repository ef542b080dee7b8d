package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ChallengeUp/pkg/logger"
	"ChallengeUp/storage/database"
	"ChallengeUp/storage/mq"
	"ChallengeUp/storage/redis"
)

const closeTimeout = 15 * time.Second

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// closers 按顺序关闭：先停止收发事件，再释放锁和缓存，最后关闭数据库
var closers = []closer{
	{"rabbitmq", mq.Close},
	{"redis", redis.Close},
	{"postgres", database.Close},
}

// Close 关闭所有外部连接，单个失败不影响后续关闭
func Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return closeAll(ctx, closers)
}

func closeAll(ctx context.Context, cs []closer) error {
	var errs []error
	for _, c := range cs {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage", zap.String("storage", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
			continue
		}
		logger.Logger.Debug("Storage closed", zap.String("storage", c.name))
	}
	return errors.Join(errs...)
}
