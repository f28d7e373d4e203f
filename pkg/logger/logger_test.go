package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verify.log")

	log := New(Config{Level: "info", Format: "json", Output: path})
	log.Info("checkpoint passed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"checkpoint passed"`)
}

func TestTemporalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tl := NewTemporalLogger(zap.New(core))

	tl.Info("Started Worker", "Namespace", "default", "TaskQueue", "clinic-verification")
	tl.Warn("Failed to poll")
	tl.Error("Activity error", "ActivityType", "ExecuteCheckpointActivity")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "temporal", entries[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "clinic-verification", entries[0].ContextMap()["TaskQueue"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "ExecuteCheckpointActivity", entries[2].ContextMap()["ActivityType"])
}
