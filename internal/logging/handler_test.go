package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatJSON, "warn", &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("cooldown recorded", "model", "gemini-2.0-flash-001")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "cooldown recorded", entry["msg"])
	assert.Equal(t, "gemini-2.0-flash-001", entry["model"])
}

func TestNew_TextWithoutColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatText, "info", &buf)
	require.NoError(t, err)

	logger.Info("model selected", "model", "gemini-2.5-pro")

	out := buf.String()
	assert.Contains(t, out, "model selected")
	assert.Contains(t, out, "model=gemini-2.5-pro")
	assert.NotContains(t, out, "\033[")
}

func TestNew_Errors(t *testing.T) {
	_, err := New("xml", "info", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(FormatJSON, "loud", &bytes.Buffer{})
	assert.Error(t, err)
}
