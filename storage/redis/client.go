package redis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ChallengeUp/config"
	pkgredis "ChallengeUp/pkg/redis"
)

const defaultPrefix = "cup"

var (
	client  *redis.Client
	once    sync.Once
	initErr error

	errNotInitialized = errors.New("redis client not initialized")
)

// options 锁、限流和缓存都走同一个客户端，读写超时要短于 TRACKER_STORE_TIMEOUT
func options(cfg config.Config) *redis.Options {
	return &redis.Options{
		Addr:            cfg.RedisAddr,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		ClientName:      cfg.ServiceName,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		MinIdleConns:    5,
		MaxRetries:      2,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func Init() error {
	once.Do(func() {
		cfg := config.Cfg
		client = redis.NewClient(options(cfg))
		if cfg.OTelEnabled {
			client.AddHook(pkgredis.NewTracingHook(cfg.ServiceName, cfg.RedisDB))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		initErr = Ping(ctx)
	})
	return initErr
}

func Client() *redis.Client {
	if client == nil {
		panic(errNotInitialized)
	}
	return client
}

// Ping 健康检查使用，未初始化时返回错误而不是 panic
func Ping(ctx context.Context) error {
	if client == nil {
		return errNotInitialized
	}
	return client.Ping(ctx).Err()
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// Key 拼接带前缀的键，空片段会被跳过：Key("lock", "participation:1:2") => cup:lock:participation:1:2
func Key(parts ...string) string {
	prefix := config.Cfg.RedisPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, part := range parts {
		if part == "" {
			continue
		}
		sb.WriteByte(':')
		sb.WriteString(part)
	}
	return sb.String()
}
