package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentApp, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf).WithComponent(ComponentStorage)
	logger.Info("hello", FieldUserID, "u1")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected exactly one component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("fallback component = %q", got)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogHTTPEnd(context.Background(), "GET", "/api/transactions", "", 503, 15*time.Millisecond, "10.0.0.1", "req_1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx should log at error, got %q", buf.String())
	}

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), "GET", "/api/transactions", "", 404, time.Millisecond, "10.0.0.1", "req_2")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("4xx should log at warn, got %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), "operation=create") {
		t.Fatalf("unexpected error log %q", buf.String())
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().WithTransfer("").WithUser("u1")
	if _, ok := f[FieldTransferID]; ok {
		t.Error("empty transfer id should be omitted")
	}
	if len(f.ToSlice()) != 2 {
		t.Errorf("ToSlice length = %d, want 2", len(f.ToSlice()))
	}
}
