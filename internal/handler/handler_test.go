package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/internal/middleware"
	"ChallengeUp/internal/repository/memory"
	"ChallengeUp/internal/service"
	"ChallengeUp/internal/tracker"
	"ChallengeUp/pkg/clock"
)

const testUser int64 = 7

func newEngine(t *testing.T) *route.Engine {
	t.Helper()

	var seq atomic.Int64
	nextID := func() (int64, error) { return seq.Add(1), nil }

	store := memory.NewStore()
	tr, err := tracker.New(tracker.Options{
		Store:  store,
		Clock:  clock.NewManual(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)),
		NextID: nextID,
	})
	require.NoError(t, err)
	service.Init(service.Deps{Challenges: store, Tracker: tr, NextID: nextID})

	engine := route.NewEngine(config.NewOptions(nil))
	engine.Use(middleware.RequestIDMiddleware(), func(ctx context.Context, c *app.RequestContext) {
		c.Set(middleware.IdentityKey, testUser)
		c.Next(ctx)
	})
	engine.POST("/v1/challenges", CreateChallenge)
	engine.GET("/v1/challenges", ListChallenges)
	engine.POST("/v1/challenges/:challenge_id/join", JoinChallenge)
	engine.POST("/v1/challenges/:challenge_id/check-ins", CheckIn)
	engine.GET("/v1/challenges/:challenge_id/check-ins", GetCheckInHistory)
	engine.GET("/v1/challenges/:challenge_id/participation", GetParticipation)
	engine.DELETE("/v1/challenges/:challenge_id/participation", LeaveChallenge)
	return engine
}

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	errObj, ok := decode(t, body)["error"].(map[string]interface{})
	require.True(t, ok, string(body))
	return errObj["code"].(string)
}

func TestParticipationFlow(t *testing.T) {
	engine := newEngine(t)

	w := ut.PerformRequest(engine, http.MethodPost, "/v1/challenges",
		jsonBody(`{"title":"Stretch","difficulty":"easy","duration_days":30,"points_reward":10}`), jsonHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w.Body.Bytes())["data"].(map[string]interface{})["id"].(string)

	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/join", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/join", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_PARTICIPATION", errorCode(t, w.Body.Bytes()))

	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/check-ins", jsonBody(`{"note":"day one"}`), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, false, data["completed"])
	assert.InDelta(t, 3.33, data["participation"].(map[string]interface{})["progress"], 0.001)

	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/check-ins", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CHECKED_IN_TODAY", errorCode(t, w.Body.Bytes()))

	w = ut.PerformRequest(engine, http.MethodGet, "/v1/challenges/"+id+"/check-ins?order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode(t, w.Body.Bytes())["data"].([]interface{})
	require.Len(t, notes, 1)

	w = ut.PerformRequest(engine, http.MethodDelete, "/v1/challenges/"+id+"/participation", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ut.PerformRequest(engine, http.MethodGet, "/v1/challenges/"+id+"/participation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PARTICIPATION_NOT_FOUND", errorCode(t, w.Body.Bytes()))
}

func TestCheckInNoteTooLong(t *testing.T) {
	engine := newEngine(t)

	w := ut.PerformRequest(engine, http.MethodPost, "/v1/challenges",
		jsonBody(`{"title":"Journal","difficulty":"medium","duration_days":10}`), jsonHeader)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w.Body.Bytes())["data"].(map[string]interface{})["id"].(string)

	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/join", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	long := bytes.Repeat([]byte("a"), 501)
	w = ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/"+id+"/check-ins",
		jsonBody(`{"note":"`+string(long)+`"}`), jsonHeader)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NOTE_TOO_LONG", errorCode(t, w.Body.Bytes()))
}

func TestInvalidChallengeID(t *testing.T) {
	engine := newEngine(t)

	w := ut.PerformRequest(engine, http.MethodPost, "/v1/challenges/abc/join", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w.Body.Bytes()))
}

func TestListChallengesMeta(t *testing.T) {
	engine := newEngine(t)

	w := ut.PerformRequest(engine, http.MethodGet, "/v1/challenges?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w.Body.Bytes())
	meta := body["meta"].(map[string]interface{})
	assert.NotEmpty(t, meta["request_id"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestHealthzReportsRedisWithoutFailing(t *testing.T) {
	engine := route.NewEngine(config.NewOptions(nil))
	engine.GET("/healthz", Healthz)

	w := ut.PerformRequest(engine, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w.Body.Bytes())
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "unavailable", body["redis"])
	assert.Len(t, body["breakers"], 2)
}
