package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"

	"ChallengeUp/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 1 * time.Minute
	// 防雪崩 TTL 抖动上限
	ttlJitterMax = 30 * time.Second
)

// ProtectedCache 带空值保护和 TTL 抖动的缓存包装器
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
}

// NewProtectedCache 创建受保护的缓存实例
func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
	}
}

// Set value 为 nil 时写入空值标记
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	data, ttl, err := pc.encode(value)
	if err != nil {
		return err
	}
	return redis.Client().Set(ctx, redis.Key(pc.keyPrefix, key), data, ttl).Err()
}

func (pc *ProtectedCache) encode(value interface{}) (string, time.Duration, error) {
	if value == nil {
		return emptyValueFlag, pc.emptyTTL, nil
	}

	data, err := sonic.MarshalString(value)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return data, pc.ttl + jitter(), nil
}

// Get 返回是否命中；空值命中时 dest 保持零值
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := redis.Client().Get(ctx, redis.Key(pc.keyPrefix, key)).Result()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == emptyValueFlag {
		return true, nil
	}

	if err := sonic.UnmarshalString(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

func jitter() time.Duration {
	return time.Duration(rand.Int64N(int64(ttlJitterMax)))
}
