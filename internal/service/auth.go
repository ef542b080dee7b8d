package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ChallengeUp/internal/cache"
	"ChallengeUp/internal/model/dto"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/token"
)

type AuthService struct{}

// RefreshToken 校验并轮换 refresh token，旧 token 立即失效
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenPairResponse, error) {
	userID, err := token.ParseRefresh(refreshToken)
	if err != nil {
		logger.Logger.Debug("Rejected refresh token", zap.Error(err))
		return nil, errors.Unauthorized
	}

	pair, err := token.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token pair: %w", err)
	}

	rotated, err := cache.RotateRefreshToken(ctx, userID, refreshToken, pair.Refresh)
	if err != nil {
		return nil, errors.WithCause(errors.StoreUnavailable, err)
	}
	if !rotated {
		logger.Logger.Warn("Refresh token reused or revoked", zap.Int64("user_id", userID))
		return nil, errors.Unauthorized
	}

	return &dto.TokenPairResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
