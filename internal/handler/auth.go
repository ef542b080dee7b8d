package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ChallengeUp/internal/model/dto"
	"ChallengeUp/internal/service"
	"ChallengeUp/pkg/response"
)

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Auth().RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
