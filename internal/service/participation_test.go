package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/repository/memory"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/clock"
	"ChallengeUp/pkg/errors"
)

const (
	owner    int64 = 7
	stranger int64 = 8
)

type stubLeaderboard struct {
	entries []cache.LeaderboardEntry
	err     error
}

func (s stubLeaderboard) TopUsers(_ context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[:min(limit, len(s.entries))], nil
}

type fixture struct {
	challenges    *ChallengeService
	participation *ParticipationService
	clock         *clock.Manual
}

func newFixture(t *testing.T, lb Leaderboard) *fixture {
	t.Helper()

	var seq atomic.Int64
	nextID := func() (int64, error) { return seq.Add(1), nil }

	store := memory.NewStore()
	clk := clock.NewManual(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	tr, err := tracker.New(tracker.Options{Store: store, Clock: clk, NextID: nextID})
	require.NoError(t, err)

	cs := NewChallengeService(store, nil, nextID)
	return &fixture{
		challenges:    cs,
		participation: NewParticipationService(cs, tr, lb),
		clock:         clk,
	}
}

func (f *fixture) create(t *testing.T, days int, public bool) int64 {
	t.Helper()
	item, err := f.challenges.Create(context.Background(), owner, dto.CreateChallengeRequest{
		Title:        "  Read every day ",
		Difficulty:   "Easy",
		DurationDays: days,
		PointsReward: 20,
		IsPublic:     &public,
		Tags:         []string{"books", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Read every day", item.Title)
	assert.Equal(t, []string{"books"}, item.Tags)

	id, err := strconv.ParseInt(item.ID, 10, 64)
	require.NoError(t, err)
	return id
}

func TestCreateChallengeValidation(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})
	ctx := context.Background()

	_, err := f.challenges.Create(ctx, owner, dto.CreateChallengeRequest{Title: "x", Difficulty: "easy", DurationDays: 0})
	assert.ErrorIs(t, err, errors.InvalidDuration)

	_, err = f.challenges.Create(ctx, owner, dto.CreateChallengeRequest{Title: "x", Difficulty: "legendary", DurationDays: 3})
	assert.ErrorIs(t, err, errors.InvalidChallenge)

	_, err = f.challenges.Create(ctx, owner, dto.CreateChallengeRequest{Title: "   ", Difficulty: "easy", DurationDays: 3})
	assert.ErrorIs(t, err, errors.InvalidChallenge)
}

func TestPrivateChallengeOnlyJoinableByOwner(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})
	ctx := context.Background()
	id := f.create(t, 3, false)

	_, err := f.participation.Join(ctx, stranger, id)
	assert.ErrorIs(t, err, errors.ChallengeNotJoinable)

	_, err = f.challenges.Get(ctx, stranger, id)
	assert.ErrorIs(t, err, errors.ChallengeNotFound)

	item, err := f.participation.Join(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, "active", item.Status)
}

func TestCheckInUsesChallengeDuration(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})
	ctx := context.Background()
	id := f.create(t, 2, true)

	_, err := f.participation.Join(ctx, stranger, id)
	require.NoError(t, err)

	first, err := f.participation.CheckIn(ctx, stranger, id, "chapter one")
	require.NoError(t, err)
	assert.False(t, first.Completed)
	assert.InDelta(t, 50.0, first.Participation.Progress, 0.001)

	f.clock.Advance(24 * time.Hour)
	second, err := f.participation.CheckIn(ctx, stranger, id, "")
	require.NoError(t, err)
	assert.True(t, second.Completed)
	assert.Equal(t, "completed", second.Participation.Status)

	f.clock.Advance(24 * time.Hour)
	_, err = f.participation.CheckIn(ctx, stranger, id, "")
	assert.ErrorIs(t, err, errors.AlreadyCompleted)

	history, err := f.participation.History(ctx, stranger, id, "desc")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "chapter one", history[0].Note)

	_, err = f.participation.History(ctx, stranger, id, "sideways")
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

func TestCheckInUnknownChallenge(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})

	_, err := f.participation.CheckIn(context.Background(), owner, 999, "")
	assert.ErrorIs(t, err, errors.ChallengeNotFound)
}

func TestListChallengesPagination(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})
	ctx := context.Background()
	for range 3 {
		f.create(t, 5, true)
	}
	f.create(t, 5, false)

	page, next, err := f.challenges.List(ctx, dto.ChallengeListQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	rest, next, err := f.challenges.List(ctx, dto.ChallengeListQuery{Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Empty(t, next)

	_, _, err = f.challenges.List(ctx, dto.ChallengeListQuery{Cursor: "abc"})
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

func TestListParticipationsRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, stubLeaderboard{})

	_, err := f.participation.List(context.Background(), owner, "paused")
	assert.ErrorIs(t, err, errors.InvalidRequest)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, stubLeaderboard{entries: []cache.LeaderboardEntry{{UserID: 3, Points: 300}, {UserID: 9, Points: 120}}})

	items, err := f.participation.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, dto.LeaderboardEntry{UserID: "3", Rank: 1, Points: 300}, items[0])
	assert.Equal(t, 2, items[1].Rank)

	f = newFixture(t, stubLeaderboard{err: stderrors.New("breaker open")})
	_, err = f.participation.Leaderboard(context.Background(), 5)
	assert.ErrorIs(t, err, errors.StoreUnavailable)
}
