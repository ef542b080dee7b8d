package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"ChallengeUp/internal/handler"
	"ChallengeUp/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth", middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/token/refresh", handler.RefreshToken)
	}

	// 以下路由需要鉴权
	authed := v1.Group("", middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())

	challenges := authed.Group("/challenges")
	{
		challenges.POST("", handler.CreateChallenge)
		challenges.GET("", handler.ListChallenges)
		challenges.GET("/:challenge_id", handler.GetChallenge)

		challenges.POST("/:challenge_id/join", handler.JoinChallenge)
		challenges.POST("/:challenge_id/check-ins", middleware.CheckInRateLimitMiddleware(), handler.CheckIn)
		challenges.GET("/:challenge_id/check-ins", handler.GetCheckInHistory)
		challenges.GET("/:challenge_id/participation", handler.GetParticipation)
		challenges.DELETE("/:challenge_id/participation", handler.LeaveChallenge)
	}

	users := authed.Group("/users")
	{
		users.GET("/me/participations", handler.ListMyParticipations)
	}

	authed.GET("/leaderboard", handler.GetLeaderboard)
}
