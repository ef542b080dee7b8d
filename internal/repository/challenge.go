package repository

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"ChallengeUp/internal/model"
)

// ErrChallengeNotFound 挑战不存在
var ErrChallengeNotFound = stderrors.New("challenge not found")

// ChallengeRepository 挑战表的 gorm 实现
type ChallengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, id int64) (*model.Challenge, error) {
	var c model.Challenge
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListPublicChallenges 按 ID 倒序游标分页，走只读副本
func (r *ChallengeRepository) ListPublicChallenges(ctx context.Context, category string, cursor int64, limit int) ([]model.Challenge, error) {
	q := r.db.WithContext(ctx).Where("is_public = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var out []model.Challenge
	err := q.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
