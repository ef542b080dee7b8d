package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	c := NewManual(start)
	assert.Equal(t, start, c.Now())

	next := c.Advance(time.Hour)
	assert.Equal(t, 2, next.Day())
	assert.Equal(t, next, c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock{}.Now()
	assert.False(t, now.Before(before))
}
