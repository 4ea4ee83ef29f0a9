// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/jllopis/telos/pkg/core"
)

func TestInitStdoutAndShutdown(t *testing.T) {
	shutdown, err := Init("telos-test", "0.0.1")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := InitWithConfig("telos-test", "0.0.1", Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	if _, err := InitWithConfig("telos-test", "0.0.1", Config{Exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for missing otlp endpoint")
	}
}

func TestRunHandlerInjectsRunIdentity(t *testing.T) {
	var buf bytes.Buffer
	handler := newSlogHandler(&buf, "debug", "json")
	logger := slog.New(handler)

	ctx := core.WithRunID(context.Background(), "run-abc")
	ctx = core.WithIteration(ctx, 3)
	logger.InfoContext(ctx, "iteration start")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-abc"`) {
		t.Errorf("run_id not injected: %s", out)
	}
	if !strings.Contains(out, `"iteration":3`) {
		t.Errorf("iteration not injected: %s", out)
	}
}

func TestRunHandlerWithoutRunContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, "info", "json"))

	logger.Info("plain message")

	out := buf.String()
	if strings.Contains(out, "run_id") {
		t.Errorf("run_id should not appear without a run context: %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
