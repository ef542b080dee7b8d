package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLocalLimiterPerClient(t *testing.T) {
	l := newLocalLimiter(rate.Limit(0.001), 2)

	assert.True(t, l.allow("ip:1.1.1.1"))
	assert.True(t, l.allow("ip:1.1.1.1"))
	assert.False(t, l.allow("ip:1.1.1.1"))

	assert.True(t, l.allow("user:7"))
}

func TestParseUserID(t *testing.T) {
	id, ok := parseUserID("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	id, ok = parseUserID(float64(1234567))
	assert.True(t, ok)
	assert.Equal(t, int64(1234567), id)

	_, ok = parseUserID("abc")
	assert.False(t, ok)
	_, ok = parseUserID(1.5)
	assert.False(t, ok)
	_, ok = parseUserID(nil)
	assert.False(t, ok)
}
