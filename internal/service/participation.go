package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type ParticipationService struct {
	challenges  *ChallengeService
	tracker     *tracker.Tracker
	leaderboard Leaderboard
}

func NewParticipationService(challenges *ChallengeService, t *tracker.Tracker, leaderboard Leaderboard) *ParticipationService {
	return &ParticipationService{challenges: challenges, tracker: t, leaderboard: leaderboard}
}

// Join 私有挑战只有创建者可以加入
func (s *ParticipationService) Join(ctx context.Context, userID, challengeID int64) (*dto.ParticipationItem, error) {
	c, err := s.challenges.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.JoinableBy(userID) {
		return nil, errors.ChallengeNotJoinable
	}

	p, err := s.tracker.Join(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}

	item := toParticipationItem(p)
	return &item, nil
}

// CheckIn 以挑战的 duration_days 计算进度
func (s *ParticipationService) CheckIn(ctx context.Context, userID, challengeID int64, note string) (*dto.CheckInResponse, error) {
	c, err := s.challenges.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	p, err := s.tracker.CheckIn(ctx, tracker.Ref{ChallengeID: challengeID, UserID: userID}, c.DurationDays, note)
	if err != nil {
		return nil, err
	}

	completed := p.Status == model.ParticipationStatusCompleted
	if completed {
		logger.Logger.Info("Challenge completed",
			zap.Int64("challenge_id", challengeID),
			zap.Int64("user_id", userID),
			zap.Int("check_in_count", p.CheckInCount),
		)
	}

	return &dto.CheckInResponse{
		Participation: toParticipationItem(p),
		Completed:     completed,
	}, nil
}

func (s *ParticipationService) History(ctx context.Context, userID, challengeID int64, order string) ([]dto.CheckInNoteItem, error) {
	o, err := tracker.ParseOrder(order)
	if err != nil {
		return nil, errors.InvalidRequest
	}

	notes, err := s.tracker.History(ctx, tracker.Ref{ChallengeID: challengeID, UserID: userID}, o)
	if err != nil {
		return nil, err
	}

	items := []dto.CheckInNoteItem{}
	for n := range notes {
		items = append(items, dto.CheckInNoteItem{Date: n.NotedAt, Note: n.Note})
	}
	return items, nil
}

func (s *ParticipationService) Get(ctx context.Context, userID, challengeID int64) (*dto.ParticipationItem, error) {
	p, err := s.tracker.Get(ctx, tracker.Ref{ChallengeID: challengeID, UserID: userID})
	if err != nil {
		return nil, err
	}

	item := toParticipationItem(p)
	return &item, nil
}

// List status 为空返回全部
func (s *ParticipationService) List(ctx context.Context, userID int64, status string) ([]dto.ParticipationItem, error) {
	st := model.ParticipationStatus(status)
	switch st {
	case "", model.ParticipationStatusActive, model.ParticipationStatusCompleted, model.ParticipationStatusAbandoned:
	default:
		return nil, errors.InvalidRequest
	}

	ps, err := s.tracker.List(ctx, userID, st)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ParticipationItem, 0, len(ps))
	for i := range ps {
		items = append(items, toParticipationItem(&ps[i]))
	}
	return items, nil
}

func (s *ParticipationService) Leave(ctx context.Context, userID, challengeID int64) error {
	return s.tracker.Leave(ctx, tracker.Ref{ChallengeID: challengeID, UserID: userID})
}

// Leaderboard 排行榜不可用时返回 StoreUnavailable
func (s *ParticipationService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	limit = min(limit, maxLeaderboardSize)

	entries, err := s.leaderboard.TopUsers(ctx, limit)
	if err != nil {
		return nil, errors.WithCause(errors.StoreUnavailable, err)
	}

	items := make([]dto.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		items = append(items, dto.LeaderboardEntry{
			UserID: strconv.FormatInt(e.UserID, 10),
			Rank:   i + 1,
			Points: e.Points,
		})
	}
	return items, nil
}

func toParticipationItem(p *model.Participation) dto.ParticipationItem {
	return dto.ParticipationItem{
		StartedAt:     p.StartedAt,
		LastCheckIn:   p.LastCheckIn,
		CompletedAt:   p.CompletedAt,
		AbandonedAt:   p.AbandonedAt,
		ID:            strconv.FormatInt(p.ID, 10),
		ChallengeID:   strconv.FormatInt(p.ChallengeID, 10),
		UserID:        strconv.FormatInt(p.UserID, 10),
		Status:        string(p.Status),
		Progress:      p.Progress,
		CheckInStreak: p.CheckInStreak,
		LongestStreak: p.LongestStreak,
		CheckInCount:  p.CheckInCount,
	}
}
