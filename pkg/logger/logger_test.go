package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decoding log line %q: %v", line, err)
	}
	return entry
}

func TestInfoIncludesServiceAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithOrderID(ctx, "ord-9")
	logg.Info(ctx, "order.picked")

	entry := decodeLine(t, &buf)
	if entry["service"] != "api" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("missing request_id: %v", entry)
	}
	if entry["order_id"] != "ord-9" {
		t.Fatalf("missing order_id: %v", entry)
	}
	if entry["message"] != "order.picked" {
		t.Fatalf("unexpected message: %v", entry)
	}
}

func TestErrorIncludesErrAndStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "stock.adjust_failed", errors.New("db down"))

	entry := decodeLine(t, &buf)
	if entry["error"] != "db down" {
		t.Fatalf("missing error field: %v", entry)
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatalf("expected stack in error entry: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: &buf})

	logg.Info(context.Background(), "suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logg.Warn(context.Background(), "emitted")
	if buf.Len() == 0 {
		t.Fatal("expected warn to be emitted")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %s", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("expected default info, got %s", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("expected fallback info, got %s", got)
	}
}
