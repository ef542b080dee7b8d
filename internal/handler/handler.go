package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"ChallengeUp/internal/middleware"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/response"
)

// currentUser 取出鉴权中间件写入的用户 ID，缺失时已写入 401
func currentUser(ctx context.Context, c *app.RequestContext) (int64, bool) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return 0, false
	}
	return userID, true
}

// challengeID 解析路径参数 :challenge_id
func challengeID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("challenge_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(ctx, c, errors.InvalidRequest)
		return 0, false
	}
	return id, true
}
