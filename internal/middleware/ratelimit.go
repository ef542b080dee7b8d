package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ChallengeUp/config"
	"ChallengeUp/internal/cache"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/response"
	"ChallengeUp/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口
	Window time.Duration
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 是否按用户ID限流（需要认证）
	ByUserID bool
	// 是否按IP限流
	ByIP bool
	// 阻塞时长，超过限制后禁止访问的时间，0 表示不阻塞
	BlockDuration time.Duration
}

// CheckInRateLimitConfig 打卡接口限流，一天只有一次有效打卡
var CheckInRateLimitConfig = RateLimitConfig{
	Window:        time.Minute,
	MaxRequests:   10,
	KeyPrefix:     "checkin:rate",
	ByUserID:      true,
	BlockDuration: time.Minute,
}

// AuthRateLimitConfig 刷新 token 按 IP 限流
var AuthRateLimitConfig = RateLimitConfig{
	Window:        time.Minute,
	MaxRequests:   10,
	KeyPrefix:     "auth:rate",
	ByIP:          true,
	BlockDuration: 15 * time.Minute,
}

// GeneralRateLimitConfig 通用限流，按 RATE_LIMIT_RPS 每秒计
func GeneralRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Window:      time.Second,
		MaxRequests: max(config.Cfg.RateLimitRPS, 1),
		KeyPrefix:   "rate:limit",
		ByUserID:    true,
		ByIP:        true,
	}
}

// RateLimiter redis 滑动窗口限流，redis 不可用时退化为进程内令牌桶
type RateLimiter struct {
	config   RateLimitConfig
	fallback *localLimiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	burst := config.Cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.MaxRequests
	}
	perSecond := rate.Limit(float64(cfg.MaxRequests) / cfg.Window.Seconds())
	return &RateLimiter{
		config:   cfg,
		fallback: newLocalLimiter(perSecond, min(burst, cfg.MaxRequests)),
	}
}

// identifier 优先按用户，其次按 IP
func (rl *RateLimiter) identifier(ctx context.Context, c *app.RequestContext) string {
	if rl.config.ByUserID {
		if userID, exists := GetUserID(ctx, c); exists {
			return "user:" + strconv.FormatInt(userID, 10)
		}
	}
	if rl.config.ByIP {
		return "ip:" + c.ClientIP()
	}
	return "global"
}

// Allow 使用 zset 实现滑动窗口，返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, id string) (bool, int, error) {
	key := redis.Key(rl.config.KeyPrefix, id)
	now := time.Now()
	windowStart := now.Add(-rl.config.Window)

	var zcardCmd *redislib.IntCmd
	err := cache.RedisBreaker.Call(ctx, func() error {
		pipe := redis.Client().Pipeline()
		// 移除窗口开始时间之前的所有请求记录
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
		pipe.ZAdd(ctx, key, redislib.Z{
			Score:  float64(now.UnixNano()),
			Member: uuid.NewString(),
		})
		zcardCmd = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, rl.config.Window+10*time.Second)

		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) blockKey(id string) string {
	return redis.Key(rl.config.KeyPrefix, "block", id)
}

func (rl *RateLimiter) Block(ctx context.Context, id string) error {
	if rl.config.BlockDuration <= 0 {
		return nil
	}
	return redis.Client().Set(ctx, rl.blockKey(id), "1", rl.config.BlockDuration).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, id string) (bool, error) {
	if rl.config.BlockDuration <= 0 {
		return false, nil
	}
	result, err := redis.Client().Exists(ctx, rl.blockKey(id)).Result()
	return result > 0, err
}

// RateLimitMiddleware 创建限流中间件
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(cfg)

	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.RateLimitEnabled {
			c.Next(ctx)
			return
		}

		id := limiter.identifier(ctx, c)

		blocked, err := limiter.IsBlocked(ctx, id)
		if err == nil && blocked {
			reject(ctx, c)
			return
		}

		allowed, count, err := limiter.Allow(ctx, id)
		if err != nil {
			logger.Logger.Warn("Rate limit store unavailable, using local limiter",
				zap.String("key_prefix", cfg.KeyPrefix),
				zap.Error(err),
			)
			if !limiter.fallback.allow(id) {
				reject(ctx, c)
				return
			}
			c.Next(ctx)
			return
		}

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(max(cfg.MaxRequests-count, 0)))

		if !allowed {
			if err := limiter.Block(ctx, id); err != nil {
				logger.Logger.Error("Failed to block client", zap.String("client", id), zap.Error(err))
			}
			reject(ctx, c)
			return
		}

		c.Next(ctx)
	}
}

func reject(ctx context.Context, c *app.RequestContext) {
	response.Error(ctx, c, errors.TooManyRequests)
	c.Abort()
}

// GeneralRateLimitMiddleware 通用限流中间件
func GeneralRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(GeneralRateLimitConfig())
}

func CheckInRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(CheckInRateLimitConfig)
}

func AuthRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AuthRateLimitConfig)
}

const localLimiterMaxKeys = 10000

// localLimiter 进程内按客户端的令牌桶
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLocalLimiter(limit rate.Limit, burst int) *localLimiter {
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    max(burst, 1),
	}
}

func (l *localLimiter) allow(id string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[id]
	if !ok {
		// 超过上限时整体重置，降级期间允许短暂放宽
		if len(l.limiters) >= localLimiterMaxKeys {
			clear(l.limiters)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[id] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
