package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry), "raw: %s", buf.String())
	return entry
}

func TestSetup_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)
	require.NotNil(t, l)

	l.Warn("booking notification",
		slog.String("type", "booking.created"),
		slog.Int64("recipient_id", 25),
		slog.Int("status_code", 201),
	)

	entry := lastEntry(t, &buf)
	assert.Contains(t, entry, "time")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "booking notification", entry["msg"])
	assert.Equal(t, "booking.created", entry["type"])
	assert.Equal(t, float64(25), entry["recipient_id"])
	assert.Equal(t, float64(201), entry["status_code"])
}

func TestSetup_LevelFiltersLowerEntries(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelWarn)

	l.Info("dropped")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")

	l.Error("kept")
	assert.Equal(t, "kept", lastEntry(t, &buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

// TestSetupDefault はグローバルロガーが差し替わり、指定レベルが反映されることを検証する。
func TestSetupDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := SetupDefault(&buf, "debug")
	assert.Same(t, slog.Default(), l)

	slog.Debug("debug entry", slog.String("item", "drill"))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "debug entry", entry["msg"])
	assert.Equal(t, "drill", entry["item"])

	buf.Reset()
	SetupDefault(&buf, "error")
	slog.Info("hidden")
	assert.Zero(t, buf.Len())
}
