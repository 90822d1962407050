package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l := New("debug", "console", "test")
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = New("nonsense", "json", "test")
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := New("info", "json", "x")
	assert.Same(t, l, OrNop(l))
}
