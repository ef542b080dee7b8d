package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/repository"
	"ChallengeUp/pkg/errors"
)

type fakeChallenges map[int64]*model.Challenge

func (f fakeChallenges) GetChallenge(_ context.Context, id int64) (*model.Challenge, error) {
	if c, ok := f[id]; ok {
		return c, nil
	}
	return nil, repository.ErrChallengeNotFound
}

type fakeMarks struct {
	processing map[string]bool
	done       map[string]bool
}

func newFakeMarks() *fakeMarks {
	return &fakeMarks{processing: map[string]bool{}, done: map[string]bool{}}
}

func (m *fakeMarks) TryMarkProcessing(_ context.Context, id string) (bool, error) {
	if m.processing[id] {
		return false, nil
	}
	m.processing[id] = true
	return true, nil
}

func (m *fakeMarks) MarkProcessed(_ context.Context, id string) error {
	m.done[id] = true
	return nil
}

func (m *fakeMarks) UnmarkProcessing(_ context.Context, id string) error {
	delete(m.processing, id)
	return nil
}

type harness struct {
	handler     *EventHandler
	marks       *fakeMarks
	points      map[int64]int
	invalidated []int64
	published   []model.ParticipationEvent
	pointsErr   error
}

func newHarness() *harness {
	h := &harness{marks: newFakeMarks(), points: map[int64]int{}}
	h.handler = &EventHandler{
		Challenges: fakeChallenges{1: {PointsReward: 50}},
		Marks:      h.marks,
		AddPoints: func(_ context.Context, userID int64, points int) error {
			if h.pointsErr != nil {
				return h.pointsErr
			}
			h.points[userID] += points
			return nil
		},
		Invalidate: func(_ context.Context, challengeID int64) error {
			h.invalidated = append(h.invalidated, challengeID)
			return nil
		},
		Publish: func(_ context.Context, event model.ParticipationEvent) error {
			h.published = append(h.published, event)
			return nil
		},
	}
	return h
}

func encode(t *testing.T, event model.ParticipationEvent) []byte {
	t.Helper()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestHandleCompletedAwardsPointsOnce(t *testing.T) {
	h := newHarness()
	body := encode(t, model.ParticipationEvent{MessageID: "m1", Kind: model.EventCompleted, ChallengeID: 1, UserID: 9})

	require.NoError(t, h.handler.Handle(context.Background(), body))
	assert.Equal(t, 50, h.points[9])
	assert.True(t, h.marks.done["m1"])

	err := h.handler.Handle(context.Background(), body)
	var skip *errors.SkipMessageError
	assert.ErrorAs(t, err, &skip)
	assert.Equal(t, 50, h.points[9])
}

func TestHandleCompletedUnknownChallengeIsDropped(t *testing.T) {
	h := newHarness()
	body := encode(t, model.ParticipationEvent{MessageID: "m2", Kind: model.EventCompleted, ChallengeID: 404, UserID: 9})

	require.NoError(t, h.handler.Handle(context.Background(), body))
	assert.Empty(t, h.points)
}

func TestHandleFailureUnmarksForRetry(t *testing.T) {
	h := newHarness()
	h.pointsErr = stderrors.New("redis down")
	body := encode(t, model.ParticipationEvent{MessageID: "m3", Kind: model.EventCompleted, ChallengeID: 1, UserID: 9})

	require.Error(t, h.handler.Handle(context.Background(), body))
	assert.False(t, h.marks.processing["m3"])

	h.pointsErr = nil
	require.NoError(t, h.handler.Handle(context.Background(), body))
	assert.Equal(t, 50, h.points[9])
}

func TestHandleCheckedInMilestone(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.handler.Handle(context.Background(),
		encode(t, model.ParticipationEvent{MessageID: "m4", Kind: model.EventCheckedIn, ChallengeID: 1, UserID: 9, Streak: 6})))
	assert.Empty(t, h.published)

	require.NoError(t, h.handler.Handle(context.Background(),
		encode(t, model.ParticipationEvent{MessageID: "m5", Kind: model.EventCheckedIn, ChallengeID: 1, UserID: 9, Streak: 7})))
	require.Len(t, h.published, 1)
	assert.Equal(t, model.EventMilestone, h.published[0].Kind)
	assert.Equal(t, "m5:milestone:7", h.published[0].MessageID)
	assert.Equal(t, 7, h.published[0].Streak)
}

func TestHandleJoinAndLeaveInvalidateChallenge(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.handler.Handle(context.Background(),
		encode(t, model.ParticipationEvent{MessageID: "m6", Kind: model.EventJoined, ChallengeID: 1, UserID: 9})))
	require.NoError(t, h.handler.Handle(context.Background(),
		encode(t, model.ParticipationEvent{MessageID: "m7", Kind: model.EventLeft, ChallengeID: 1, UserID: 9})))

	assert.Equal(t, []int64{1, 1}, h.invalidated)
}

func TestHandleMalformedIsSkipped(t *testing.T) {
	h := newHarness()

	err := h.handler.Handle(context.Background(), []byte("{not json"))
	var skip *errors.SkipMessageError
	assert.ErrorAs(t, err, &skip)
}
