// Package testutil provides test utilities for structured logging.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Entry is one captured log record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Capture records log entries for assertions.
type Capture struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCaptureLogger returns a logger that records every entry into the
// returned Capture.
func NewCaptureLogger() (*slog.Logger, *Capture) {
	c := &Capture{}
	return slog.New(&captureHandler{capture: c}), c
}

// Entries returns a copy of the captured entries.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Messages returns the messages logged at level or above.
func (c *Capture) Messages(level slog.Level) []string {
	var out []string
	for _, e := range c.Entries() {
		if e.Level >= level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Count returns how many messages at level or above contain substr.
func (c *Capture) Count(level slog.Level, substr string) int {
	n := 0
	for _, m := range c.Messages(level) {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

type captureHandler struct {
	capture *Capture
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.capture.mu.Lock()
	h.capture.entries = append(h.capture.entries, Entry{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.capture.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{capture: h.capture, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }
