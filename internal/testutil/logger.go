// Package testutil holds fixtures and logging helpers shared by the
// pipeline's package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger logs at debug level through t.Log, so pipeline logs show up
// next to the failing assertion or under go test -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbLog{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// CaptureLogger returns a debug logger writing text records into the
// returned buffer.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// tbLog forwards each record to the test log without its trailing newline.
type tbLog struct {
	tb testing.TB
}

func (l tbLog) Write(p []byte) (int, error) {
	l.tb.Helper()
	l.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
