package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseAllContinuesAfterFailure(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	cs := []closer{
		{"rabbitmq", func(context.Context) error { order = append(order, "rabbitmq"); return boom }},
		{"redis", func(context.Context) error { order = append(order, "redis"); return nil }},
		{"postgres", func(context.Context) error { order = append(order, "postgres"); return nil }},
	}

	err := closeAll(context.Background(), cs)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close rabbitmq")
	assert.Equal(t, []string{"rabbitmq", "redis", "postgres"}, order)
}

func TestCloseAllWithoutConnections(t *testing.T) {
	assert.NoError(t, Close())
}
