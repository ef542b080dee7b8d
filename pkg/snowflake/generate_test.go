package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDUnique(t *testing.T) {
	require.NoError(t, Init(1, 1))

	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NextID()
		require.NoError(t, err)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}

	s, err := NextIDString()
	require.NoError(t, err)
	assert.NotEmpty(t, s)
}
