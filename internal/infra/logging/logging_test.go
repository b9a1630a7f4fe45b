//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"verify-controller/internal/config"
)

func TestRedact(t *testing.T) {
	if got := Redact("short", false); got != "***" {
		t.Errorf("expected *** for short secrets, got %q", got)
	}
	if got := Redact("abcdefghijkl", false); got != "abcd...kl" {
		t.Errorf("unexpected preview %q", got)
	}
	if got := Redact("abcdefghijkl", true); got != "abcdefghijkl" {
		t.Errorf("expected dev mode to keep value, got %q", got)
	}
}

func TestWith_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithJobID(WithTraceID(context.Background(), "trace-1"), "job-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" || line["job_id"] != "job-1" {
		t.Errorf("expected context fields on log line, got %v", line)
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("expected trace id from context, got %q", TraceID(ctx))
	}
}
