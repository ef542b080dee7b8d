package cache

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := stderrors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(context.Background(), fail), boom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(context.Background(), fail), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(context.Background(), func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 1, time.Second)
	cb.now = func() time.Time { return now }

	boom := stderrors.New("boom")
	_ = cb.Call(context.Background(), func() error { return boom })
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(time.Second)
	_ = cb.Call(context.Background(), func() error { return boom })
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Call(context.Background(), func() error { return nil }), ErrBreakerOpen)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)

	_ = cb.Call(context.Background(), func() error { return context.Canceled })
	assert.Equal(t, StateClosed, cb.GetState())
}
