package cache

import (
	"context"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"ChallengeUp/storage/redis"
)

const leaderboardKey = "leaderboard"

// LeaderboardEntry 排行榜项
type LeaderboardEntry struct {
	UserID int64
	Points int64
}

// AddPoints 完成挑战后累加积分
func AddPoints(ctx context.Context, userID int64, points int) error {
	if points <= 0 {
		return nil
	}
	return LeaderboardBreaker.Call(ctx, func() error {
		return redis.Client().ZIncrBy(ctx, redis.Key(leaderboardKey), float64(points), strconv.FormatInt(userID, 10)).Err()
	})
}

// TopUsers 积分最高的前 limit 名
func TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var members []goredis.Z
	err := LeaderboardBreaker.Call(ctx, func() error {
		var err error
		members, err = redis.Client().ZRevRangeWithScores(ctx, redis.Key(leaderboardKey), 0, int64(limit-1)).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		member, ok := m.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, LeaderboardEntry{UserID: userID, Points: int64(m.Score)})
	}
	return out, nil
}
