package token

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChallengeUp/config"
	"ChallengeUp/pkg/errors"
)

func setup(t *testing.T) {
	t.Helper()
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	require.NoError(t, Init())
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	setup(t)

	pair, err := IssuePair(42)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.InDelta(t, 30*60, pair.ExpiresIn, 2)

	uid, err := ParseRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestRotationProducesDistinctRefreshTokens(t *testing.T) {
	setup(t)

	first, err := IssuePair(42)
	require.NoError(t, err)
	second, err := IssuePair(42)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)
}

func TestAccessTokenIsNotRefreshToken(t *testing.T) {
	setup(t)

	pair, err := IssuePair(42)
	require.NoError(t, err)

	// access token 没有 iss
	_, err = ParseRefresh(pair.Access)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestRejectsForeignSignature(t *testing.T) {
	setup(t)

	forged, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		IdentityKey: "42",
		TypeKey:     TypeRefresh,
		"iss":       Issuer,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = ParseRefresh(forged)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestRejectsExpiredRefresh(t *testing.T) {
	setup(t)

	pair, err := IssuePair(42)
	require.NoError(t, err)

	now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	t.Cleanup(func() { now = time.Now })

	_, err = ParseRefresh(pair.Refresh)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestIssueRequiresUser(t *testing.T) {
	setup(t)

	_, err := IssuePair(0)
	assert.ErrorIs(t, err, errors.ErrUserIDNotFound)
}
