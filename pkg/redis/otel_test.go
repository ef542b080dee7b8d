package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeys(t *testing.T) {
	assert.Equal(t, []string{"cup:leaderboard"}, extractKeys([]interface{}{"zincrby", "cup:leaderboard", 100, "7"}))
	assert.Nil(t, extractKeys([]interface{}{"ping"}))
	assert.Nil(t, extractKeys([]interface{}{"get", 42}))
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "cup:***", sanitizeKey("cup:token:refresh:7"))
	assert.Equal(t, "cup:lock:participation:1:2", sanitizeKey("cup:lock:participation:1:2"))
	assert.True(t, strings.HasSuffix(sanitizeKey(strings.Repeat("k", 150)), "..."))
}
