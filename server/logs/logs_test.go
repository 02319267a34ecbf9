package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerCapturesLines(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	restore := SetLogger(zap.New(core).Sugar())
	defer restore()

	Logger("frontend found on port %d", 3002)
	Debugf("probing port %d", 3000)
	Warnf("backend not accessible")

	entries := recorded.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "frontend found on port 3002", entries[0].Message)
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, zap.DebugLevel, entries[1].Level)
		assert.Equal(t, zap.WarnLevel, entries[2].Level)
	}
}

func TestInitTogglesDebug(t *testing.T) {
	defer Init(false)

	Init(true)
	assert.True(t, level.Enabled(zap.DebugLevel))

	Init(false)
	assert.False(t, level.Enabled(zap.DebugLevel))
}
