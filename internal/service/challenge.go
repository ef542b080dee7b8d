package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/repository"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
)

const (
	maxTitleLength = 120

	defaultPageSize = 20
	maxPageSize     = 100
)

type ChallengeService struct {
	store  ChallengeStore
	cache  ChallengeCache
	nextID func() (int64, error)
}

func NewChallengeService(store ChallengeStore, c ChallengeCache, nextID func() (int64, error)) *ChallengeService {
	return &ChallengeService{store: store, cache: c, nextID: nextID}
}

// Create 创建挑战，创建者即 userID
func (s *ChallengeService) Create(ctx context.Context, userID int64, req dto.CreateChallengeRequest) (*dto.ChallengeItem, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, errors.InvalidChallenge
	}
	difficulty := model.Difficulty(strings.ToLower(strings.TrimSpace(req.Difficulty)))
	if !difficulty.Valid() {
		return nil, errors.InvalidChallenge
	}
	if req.DurationDays <= 0 {
		return nil, errors.InvalidDuration
	}
	if req.PointsReward < 0 {
		return nil, errors.InvalidChallenge
	}

	id, err := s.nextID()
	if err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	c := &model.Challenge{
		BaseModel:    model.BaseModel{ID: id},
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Category:     strings.TrimSpace(req.Category),
		Difficulty:   difficulty,
		Tags:         tags,
		DurationDays: req.DurationDays,
		PointsReward: req.PointsReward,
		IsPublic:     isPublic,
		CreatedBy:    userID,
	}
	if err := s.store.CreateChallenge(ctx, c); err != nil {
		return nil, errors.WithCause(errors.StoreUnavailable, err)
	}

	logger.Logger.Info("Challenge created",
		zap.Int64("challenge_id", c.ID),
		zap.Int64("created_by", userID),
		zap.Int("duration_days", c.DurationDays),
	)

	item := toChallengeItem(c)
	return &item, nil
}

// Get 私有挑战对非创建者表现为不存在
func (s *ChallengeService) Get(ctx context.Context, userID, challengeID int64) (*dto.ChallengeItem, error) {
	c, err := s.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.JoinableBy(userID) {
		return nil, errors.ChallengeNotFound
	}

	item := toChallengeItem(c)
	return &item, nil
}

// List 公开挑战分页，按 ID 倒序，返回下一页游标
func (s *ChallengeService) List(ctx context.Context, q dto.ChallengeListQuery) ([]dto.ChallengeItem, string, error) {
	var cursor int64
	if q.Cursor != "" {
		var err error
		cursor, err = strconv.ParseInt(q.Cursor, 10, 64)
		if err != nil || cursor <= 0 {
			return nil, "", errors.InvalidRequest
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	challenges, err := s.store.ListPublicChallenges(ctx, strings.TrimSpace(q.Category), cursor, limit)
	if err != nil {
		return nil, "", errors.WithCause(errors.StoreUnavailable, err)
	}

	items := make([]dto.ChallengeItem, 0, len(challenges))
	for i := range challenges {
		items = append(items, toChallengeItem(&challenges[i]))
	}

	var next string
	if len(challenges) == limit {
		next = strconv.FormatInt(challenges[len(challenges)-1].ID, 10)
	}
	return items, next, nil
}

// load 先读缓存，未命中回源并回填
func (s *ChallengeService) load(ctx context.Context, id int64) (*model.Challenge, error) {
	if s.cache != nil {
		c, hit, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			logger.Logger.Debug("Challenge cache unavailable", zap.Int64("challenge_id", id), zap.Error(err))
		case hit && c == nil:
			return nil, errors.ChallengeNotFound
		case hit:
			return c, nil
		}
	}

	c, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrChallengeNotFound) {
			s.fill(ctx, id, nil)
			return nil, errors.ChallengeNotFound
		}
		return nil, errors.WithCause(errors.StoreUnavailable, err)
	}

	s.fill(ctx, id, c)
	return c, nil
}

func (s *ChallengeService) fill(ctx context.Context, id int64, c *model.Challenge) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, id, c); err != nil {
		logger.Logger.Debug("Failed to fill challenge cache", zap.Int64("challenge_id", id), zap.Error(err))
	}
}

func toChallengeItem(c *model.Challenge) dto.ChallengeItem {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.ChallengeItem{
		CreatedAt:        c.CreatedAt,
		ID:               strconv.FormatInt(c.ID, 10),
		Title:            c.Title,
		Description:      c.Description,
		Category:         c.Category,
		Difficulty:       string(c.Difficulty),
		CreatedBy:        strconv.FormatInt(c.CreatedBy, 10),
		Tags:             tags,
		DurationDays:     c.DurationDays,
		PointsReward:     c.PointsReward,
		ParticipantCount: c.ParticipantCount,
		IsPublic:         c.IsPublic,
	}
}
