package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestLogRunFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelDebug).WithSearch("abc").WithRun(3, 1)

	l.LogRun(context.Background(), 7, 42.5, false, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "clustering run completed", entry["msg"])
	assert.Equal(t, "abc", entry["search"])
	assert.EqualValues(t, 3, entry["k"])
	assert.EqualValues(t, 1, entry["repetition"])
	assert.EqualValues(t, 7, entry["iterations"])
}

func TestLogSearchError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelInfo)

	l.LogSearch(context.Background(), 10, 0, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, slog.LevelInfo)

	l.LogRun(context.Background(), 1, 1, true, nil)

	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.NotPanics(t, func() {
		l.LogSelection(context.Background(), "dunn", 2, 0, 1.5)
	})
}
