package memory

import (
	"cmp"
	"context"
	"slices"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/repository"
)

func (s *Store) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	stored.Tags = slices.Clone(c.Tags)
	s.challenges[c.ID] = &stored
	return nil
}

func (s *Store) GetChallenge(ctx context.Context, id int64) (*model.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}
	out := *c
	out.Tags = slices.Clone(c.Tags)
	return &out, nil
}

// ListPublicChallenges 按 ID 倒序，cursor 为上一页最后一条的 ID
func (s *Store) ListPublicChallenges(ctx context.Context, category string, cursor int64, limit int) ([]model.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Challenge
	for _, c := range s.challenges {
		if !c.IsPublic || (category != "" && c.Category != category) {
			continue
		}
		if cursor > 0 && c.ID >= cursor {
			continue
		}
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b model.Challenge) int {
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
