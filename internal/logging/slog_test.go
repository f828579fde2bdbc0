package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewSlogLogger(l), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestSlogLogger_Info(t *testing.T) {
	log, buf := newBufLogger(t)
	log.Info(context.Background(), "hello", "k", "v")

	rec := lastRecord(t, buf)
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "INFO", rec["level"])
	require.Equal(t, "v", rec["k"])
}

func TestSlogLogger_WarnAndError(t *testing.T) {
	log, buf := newBufLogger(t)
	log.Warn(context.Background(), "careful")
	require.Contains(t, buf.String(), `"WARN"`)

	buf.Reset()
	log.Error(context.Background(), "boom")
	require.Contains(t, buf.String(), `"ERROR"`)
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newBufLogger(t)
	child := log.With("module", "session")
	child.Info(context.Background(), "locked")

	rec := lastRecord(t, buf)
	require.Equal(t, "session", rec["module"])
}
