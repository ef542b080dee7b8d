package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/response"
	"ChallengeUp/pkg/token"
)

const (
	IdentityKey = token.IdentityKey
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	// 使用 token 包中共享的生成器
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	authMiddleware = &jwt.HertzJWTMiddleware{
		Realm:       "ChallengeUp API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			// refresh token 不能用于访问接口
			if t, _ := claims[token.TypeKey].(string); t == token.TypeRefresh {
				return nil
			}
			uid, ok := parseUserID(claims[IdentityKey])
			if !ok {
				return nil
			}
			return uid
		},

		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			_, ok := data.(int64)
			return ok
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Error: response.ErrorDetail{
					Code:    errors.Unauthorized.Code,
					Message: message,
				},
			})
		},

		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
	}

	return authMiddleware.MiddlewareInit()
}

// parseUserID uid claim 可能是字符串或数字
func parseUserID(v interface{}) (int64, bool) {
	switch uid := v.(type) {
	case string:
		id, err := strconv.ParseInt(uid, 10, 64)
		return id, err == nil && id > 0
	case float64:
		id := int64(uid)
		return id, id > 0 && float64(id) == uid
	default:
		return 0, false
	}
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// GetUserID 从请求上下文中获取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	return id, ok
}
