package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNewJSONLoggerWithBind(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Bind("request_id", "req-1").Info("request_started", "intent", "send_email")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request_started", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "send_email", entry["intent"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: "warn", Format: "text", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.IsType(t, NopLogger{}, l)
	assert.NotPanics(t, func() { l.Bind("k", "v").Error("boom") })

	slogger := FromSlog(nil)
	assert.Same(t, slogger, OrNop(slogger))
}
