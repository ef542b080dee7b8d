package cache

import (
	"context"
	"strconv"
	"time"

	"ChallengeUp/internal/model"
)

// ChallengeCache 挑战详情缓存，加入和退出后由 worker 失效
var ChallengeCache = NewProtectedCache("challenge", 10*time.Minute)

func GetChallenge(ctx context.Context, id int64) (*model.Challenge, bool, error) {
	var c model.Challenge
	var hit bool
	err := RedisBreaker.Call(ctx, func() error {
		var err error
		hit, err = ChallengeCache.Get(ctx, strconv.FormatInt(id, 10), &c)
		return err
	})
	if err != nil || !hit {
		return nil, false, err
	}
	if c.ID == 0 {
		// 空值命中
		return nil, true, nil
	}
	return &c, true, nil
}

// SetChallenge c 为 nil 时写入空值标记，防止穿透
func SetChallenge(ctx context.Context, id int64, c *model.Challenge) error {
	return RedisBreaker.Call(ctx, func() error {
		if c == nil {
			return ChallengeCache.Set(ctx, strconv.FormatInt(id, 10), nil)
		}
		return ChallengeCache.Set(ctx, strconv.FormatInt(id, 10), c)
	})
}

func InvalidateChallenge(ctx context.Context, id int64) error {
	return RedisBreaker.Call(ctx, func() error {
		return ChallengeCache.Delete(ctx, strconv.FormatInt(id, 10))
	})
}
