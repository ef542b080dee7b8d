package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
)

var ref = tracker.Ref{ChallengeID: 7, UserID: 9}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateChallenge(ctx, &model.Challenge{
		BaseModel:    model.BaseModel{ID: ref.ChallengeID},
		DurationDays: 30,
		IsPublic:     true,
	}))
	require.NoError(t, s.Insert(ctx, &model.Participation{
		BaseModel:   model.BaseModel{ID: 1},
		ChallengeID: ref.ChallengeID,
		UserID:      ref.UserID,
		Status:      model.ParticipationStatusActive,
		Version:     1,
	}))
	return s
}

func count(t *testing.T, s *Store) int64 {
	c, err := s.GetChallenge(context.Background(), ref.ChallengeID)
	require.NoError(t, err)
	return c.ParticipantCount
}

func TestReplaceRefusesLeftParticipation(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	cur, err := s.Find(ctx, ref)
	require.NoError(t, err)
	next := cur.Clone()
	next.CheckInCount = 1
	next.Version = 2

	_, err = s.Abandon(ctx, ref, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Replace(ctx, &next, nil), tracker.ErrNotActive)

	stored, err := s.Find(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationStatusAbandoned, stored.Status)
	assert.Zero(t, stored.CheckInCount)

	require.NoError(t, s.Remove(ctx, ref))
	assert.ErrorIs(t, s.Replace(ctx, &next, nil), tracker.ErrNotFound)
	assert.Equal(t, int64(0), count(t, s))
}

func TestInsertReplacesAbandoned(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	assert.Equal(t, int64(1), count(t, s))

	dup := &model.Participation{BaseModel: model.BaseModel{ID: 2}, ChallengeID: ref.ChallengeID, UserID: ref.UserID, Status: model.ParticipationStatusActive}
	assert.ErrorIs(t, s.Insert(ctx, dup), tracker.ErrDuplicate)

	_, err := s.Abandon(ctx, ref, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count(t, s))

	require.NoError(t, s.Insert(ctx, dup))
	assert.Equal(t, int64(1), count(t, s))
	stored, err := s.Find(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ID)
}

func TestCompareAndSwapRequiresVersion(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	cur, err := s.Find(ctx, ref)
	require.NoError(t, err)
	next := cur.Clone()
	next.Version = 2

	ok, err := s.CompareAndSwap(ctx, 5, &next, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CompareAndSwap(ctx, 1, &next, &model.CheckInNote{Note: "first"})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := s.Find(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	require.Len(t, stored.CheckInNotes, 1)
	assert.Equal(t, int64(1), stored.CheckInNotes[0].ParticipationID)
}

func TestResetBrokenStreaks(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	cur, err := s.Find(ctx, ref)
	require.NoError(t, err)
	next := cur.Clone()
	next.CheckInStreak = 3
	next.LastCheckInDay = "2026-01-01"
	next.Version = 2
	require.NoError(t, s.Replace(ctx, &next, nil))

	n, err := s.ResetBrokenStreaks(ctx, "2026-01-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.ResetBrokenStreaks(ctx, "2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := s.Find(ctx, ref)
	require.NoError(t, err)
	assert.Zero(t, stored.CheckInStreak)
	assert.Equal(t, int64(3), stored.Version)
}
