package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info("order", "created")
	l.LogReconcile("ord-1", "pi_123", errors.New("db down"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "ORDER", entries[0].Category)
	assert.Equal(t, "created", entries[0].Message)
	assert.Equal(t, "logger_test.go", entries[0].File)

	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "RECONCILE", entries[1].Category)
	assert.Contains(t, entries[1].Message, "pi_123")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(WARN)

	l.Debug("X", "dropped")
	l.Info("X", "dropped")
	l.Warn("X", "kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("chatty"))
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := Watermill(New(&buf)).With(watermill.LogFields{"topic": "guests"})

	adapter.Info("handler started", watermill.LogFields{"handler": "fan-out"})
	adapter.Error("handler failed", errors.New("boom"), nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "OUTBOX", entries[0].Category)
	assert.Equal(t, "handler started handler=fan-out topic=guests", entries[0].Message)
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "handler failed: boom topic=guests", entries[1].Message)
}
