package logger

import (
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestToHlogLevel(t *testing.T) {
	assert.Equal(t, hlog.LevelDebug, toHlogLevel(zapcore.DebugLevel))
	assert.Equal(t, hlog.LevelWarn, toHlogLevel(zapcore.WarnLevel))
	assert.Equal(t, hlog.LevelFatal, toHlogLevel(zapcore.FatalLevel))
}

func TestNopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Logger.Info("before init")
		Sync()
	})
}
