package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	p := NewOTELPlugin(PluginConfig{MaxSQLLength: 80})

	out := p.SanitizeSQL(`UPDATE users SET password = 'hunter2', token='abc' WHERE id = 1`)
	assert.Contains(t, out, "password='***'")
	assert.Contains(t, out, "token='***'")
	assert.NotContains(t, out, "hunter2")

	long := p.SanitizeSQL("SELECT " + strings.Repeat("x", 200))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, long, 83)
}
