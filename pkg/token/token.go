package token

import (
	"fmt"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hertz-contrib/jwt"

	"ChallengeUp/config"
	"ChallengeUp/pkg/errors"
)

const (
	IdentityKey = "uid"
	TypeKey     = "type"

	TypeRefresh = "refresh"

	// Issuer 本服务签发的 refresh token 带此 iss，身份服务签发的 access token 不强制
	Issuer = "challengeup"
)

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware

	now = time.Now
)

// Pair 一次签发的 access/refresh token
type Pair struct {
	Access    string
	Refresh   string
	ExpiresIn int // access token 剩余秒数
}

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     accessTTL(),
		MaxRefresh:  refreshTTL(),
		IdentityKey: IdentityKey,
		TimeFunc:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}
	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

func accessTTL() time.Duration {
	return time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute
}

func refreshTTL() time.Duration {
	return time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
}

// IssuePair 为用户签发新的 token 对。refresh token 带 jti，
// 同一秒内的两次轮换也不会得到相同的 token。
func IssuePair(userID int64) (Pair, error) {
	if sharedGenerator == nil {
		return Pair{}, errors.ErrTokenGeneratorNotInitialized
	}
	if userID <= 0 {
		return Pair{}, errors.ErrUserIDNotFound
	}

	issuedAt := now()
	expiresAt := issuedAt.Add(accessTTL())
	uid := strconv.FormatInt(userID, 10)

	access, err := sign(jwtv5.MapClaims{
		IdentityKey: uid,
		"iat":       issuedAt.Unix(),
		"exp":       expiresAt.Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := sign(jwtv5.MapClaims{
		IdentityKey: uid,
		TypeKey:     TypeRefresh,
		"iss":       Issuer,
		"jti":       uuid.NewString(),
		"iat":       issuedAt.Unix(),
		"exp":       issuedAt.Add(refreshTTL()).Unix(),
	})
	if err != nil {
		return Pair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return Pair{
		Access:    access,
		Refresh:   refresh,
		ExpiresIn: max(int(expiresAt.Sub(now()).Seconds()), 0),
	}, nil
}

func sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(config.Cfg.JWTSecret))
}

// ParseRefresh 校验 refresh token，返回用户 ID
func ParseRefresh(raw string) (int64, error) {
	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(raw, claims,
		func(*jwtv5.Token) (interface{}, error) { return []byte(config.Cfg.JWTSecret), nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(Issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	if t, _ := claims[TypeKey].(string); t != TypeRefresh {
		return 0, errors.ErrInvalidTokenType
	}

	uid, _ := claims[IdentityKey].(string)
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrUserIDNotFound
	}
	return id, nil
}
