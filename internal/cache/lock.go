package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"ChallengeUp/internal/tracker"
	"ChallengeUp/storage/redis"
)

// 分布式锁：SET NX PX 写入随机 token，释放时比对 token 再删除，避免误删他人的锁
const (
	lockPrefix = "lock"

	defaultLockRetry = 25 * time.Millisecond
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost 释放时锁已过期或被他人持有
var ErrLockLost = stderrors.New("lock expired before release")

// TryLock 尝试加锁一次，成功时返回持有 token
func TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := redis.Client().SetNX(ctx, redis.Key(lockPrefix, key), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock 仅当 token 匹配时删除
func Unlock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, redis.Client(), []string{redis.Key(lockPrefix, key)}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// RedisLocker 实现 tracker.Locker，拿不到锁时按固定间隔重试直到 ctx 结束
type RedisLocker struct {
	Retry time.Duration
}

var _ tracker.Locker = (*RedisLocker)(nil)

func NewRedisLocker() *RedisLocker {
	return &RedisLocker{Retry: defaultLockRetry}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	retry := l.Retry
	if retry <= 0 {
		retry = defaultLockRetry
	}

	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		token, ok, err := TryLock(ctx, key, ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, tracker.ErrLockNotAcquired
			}
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return Unlock(ctx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, tracker.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

// RedisJobLock 定时任务使用的单次尝试锁
type RedisJobLock struct{}

func (RedisJobLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return TryLock(ctx, key, ttl)
}

func (RedisJobLock) Unlock(ctx context.Context, key, token string) error {
	return Unlock(ctx, key, token)
}
