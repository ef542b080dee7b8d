package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ChallengeUp/internal/middleware"
	"ChallengeUp/internal/model"
	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/service"
	"ChallengeUp/pkg/response"
)

// CreateChallenge 创建挑战
// POST /v1/challenges
func CreateChallenge(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateChallengeRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Challenge().Create(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// ListChallenges 公开挑战列表
// GET /v1/challenges
func ListChallenges(ctx context.Context, c *app.RequestContext) {
	var q dto.ChallengeListQuery
	if err := c.BindAndValidate(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	items, next, err := service.Challenge().List(ctx, q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, items, model.PageMeta(middleware.GetRequestID(c), next))
}

// GetChallenge 挑战详情
// GET /v1/challenges/:challenge_id
func GetChallenge(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	id, ok := challengeID(ctx, c)
	if !ok {
		return
	}

	result, err := service.Challenge().Get(ctx, userID, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
