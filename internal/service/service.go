package service

import (
	"context"
	"sync"

	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
)

// ChallengeStore 挑战存储，gorm 仓储和内存存储都实现了它
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, c *model.Challenge) error
	GetChallenge(ctx context.Context, id int64) (*model.Challenge, error)
	ListPublicChallenges(ctx context.Context, category string, cursor int64, limit int) ([]model.Challenge, error)
}

// ChallengeCache 挑战详情缓存，hit 为 true 且 c 为 nil 表示空值命中
type ChallengeCache interface {
	Get(ctx context.Context, id int64) (c *model.Challenge, hit bool, err error)
	Set(ctx context.Context, id int64, c *model.Challenge) error
}

// Leaderboard 积分排行
type Leaderboard interface {
	TopUsers(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error)
}

// Deps 服务依赖，由 cmd 组装
type Deps struct {
	Challenges  ChallengeStore
	Cache       ChallengeCache // 可为空
	Tracker     *tracker.Tracker
	Leaderboard Leaderboard
	NextID      func() (int64, error)
}

var (
	challengeService     *ChallengeService
	participationService *ParticipationService
	authService          *AuthService
	mu                   sync.RWMutex
)

// Init 组装全局服务实例
func Init(deps Deps) {
	mu.Lock()
	defer mu.Unlock()

	challengeService = NewChallengeService(deps.Challenges, deps.Cache, deps.NextID)
	participationService = NewParticipationService(challengeService, deps.Tracker, deps.Leaderboard)
	authService = &AuthService{}
}

func Challenge() *ChallengeService {
	mu.RLock()
	defer mu.RUnlock()
	if challengeService == nil {
		panic("service not initialized, call service.Init first")
	}
	return challengeService
}

func Participation() *ParticipationService {
	mu.RLock()
	defer mu.RUnlock()
	if participationService == nil {
		panic("service not initialized, call service.Init first")
	}
	return participationService
}

func Auth() *AuthService {
	mu.RLock()
	defer mu.RUnlock()
	if authService == nil {
		return &AuthService{}
	}
	return authService
}

// RedisChallengeCache 基于 redis 的挑战缓存
type RedisChallengeCache struct{}

func (RedisChallengeCache) Get(ctx context.Context, id int64) (*model.Challenge, bool, error) {
	return cache.GetChallenge(ctx, id)
}

func (RedisChallengeCache) Set(ctx context.Context, id int64, c *model.Challenge) error {
	return cache.SetChallenge(ctx, id, c)
}

// RedisLeaderboard 基于 redis ZSET 的排行榜
type RedisLeaderboard struct{}

func (RedisLeaderboard) TopUsers(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	return cache.TopUsers(ctx, limit)
}
