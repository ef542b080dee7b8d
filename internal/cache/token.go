package cache

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ChallengeUp/config"
	"ChallengeUp/storage/redis"
)

// refresh token 由身份服务首次写入 cup:token:refresh:{user_id}，本服务只负责轮换
var rotateScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

func refreshTokenKey(userID int64) string {
	return redis.Key("token", "refresh", strconv.FormatInt(userID, 10))
}

// RotateRefreshToken 仅当当前存储的 token 等于 old 时替换为 next。
// 返回 false 表示 old 已被使用或已失效，并发刷新只有一个能成功。
func RotateRefreshToken(ctx context.Context, userID int64, old, next string) (bool, error) {
	ttl := time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
	n, err := rotateScript.Run(ctx, redis.Client(),
		[]string{refreshTokenKey(userID)},
		old, next, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
