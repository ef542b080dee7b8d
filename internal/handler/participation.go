package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/service"
	"ChallengeUp/pkg/response"
)

// JoinChallenge 加入挑战
// POST /v1/challenges/:challenge_id/join
func JoinChallenge(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	result, err := service.Participation().Join(ctx, userID, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// CheckIn 当日打卡
// POST /v1/challenges/:challenge_id/check-ins
func CheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	var req dto.CheckInRequest
	// 空 body 视为无备注
	if len(c.Request.Body()) > 0 {
		if err := c.BindAndValidate(&req); err != nil {
			response.BindError(ctx, c, err)
			return
		}
	}

	result, err := service.Participation().CheckIn(ctx, userID, id, req.Note)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetCheckInHistory 打卡备注历史
// GET /v1/challenges/:challenge_id/check-ins
func GetCheckInHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	var q dto.CheckInHistoryQuery
	if err := c.BindAndValidate(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participation().History(ctx, userID, id, q.Order)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetParticipation 当前用户在该挑战的参与记录
// GET /v1/challenges/:challenge_id/participation
func GetParticipation(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	result, err := service.Participation().Get(ctx, userID, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// LeaveChallenge 退出挑战
// DELETE /v1/challenges/:challenge_id/participation
func LeaveChallenge(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	if err := service.Participation().Leave(ctx, userID, id); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// ListMyParticipations 我的参与列表
// GET /v1/users/me/participations
func ListMyParticipations(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var q dto.ParticipationListQuery
	if err := c.BindAndValidate(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participation().List(ctx, userID, q.Status)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetLeaderboard 积分排行榜
// GET /v1/leaderboard
func GetLeaderboard(ctx context.Context, c *app.RequestContext) {
	var q dto.LeaderboardQuery
	if err := c.BindAndValidate(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participation().Leaderboard(ctx, q.Limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
