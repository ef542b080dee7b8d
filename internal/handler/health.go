package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"ChallengeUp/internal/cache"
	"ChallengeUp/storage/redis"
)

// Healthz 存活检查，附带 redis 连通性和熔断器状态；redis 不可用时仍返回 200
// GET /healthz
func Healthz(ctx context.Context, c *app.RequestContext) {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	redisStatus := "ok"
	if err := redis.Ping(pingCtx); err != nil {
		redisStatus = "unavailable"
	}

	c.JSON(http.StatusOK, utils.H{
		"status": "ok",
		"redis":  redisStatus,
		"breakers": []map[string]interface{}{
			cache.RedisBreaker.GetStats(),
			cache.LeaderboardBreaker.GetStats(),
		},
	})
}
