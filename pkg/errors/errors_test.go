// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New(KindToolExecution, "tool failed", cause)

	msg := err.Error()
	if !strings.Contains(msg, "TOOL_EXECUTION_ERROR") {
		t.Errorf("error message missing kind: %s", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("error message missing cause: %s", msg)
	}

	bare := New(KindToolNotFound, "no such tool", nil)
	if strings.Contains(bare.Error(), "<nil>") {
		t.Errorf("nil cause leaked into message: %s", bare.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := New(KindUnknown, "wrapper", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestWithContextChaining(t *testing.T) {
	err := New(KindToolTimeout, "deadline exceeded", nil).
		WithContext("tool", "read_files").
		WithContext("timeout", "30s")

	if err.Context["tool"] != "read_files" {
		t.Errorf("expected tool context, got %v", err.Context["tool"])
	}
	if err.Context["timeout"] != "30s" {
		t.Errorf("expected timeout context, got %v", err.Context["timeout"])
	}
}

func TestDefaultRecoverable(t *testing.T) {
	tests := []struct {
		kind        Kind
		recoverable bool
	}{
		{KindToolExecution, true},
		{KindToolTimeout, true},
		{KindOracleResponse, true},
		{KindDuplicateToolName, false},
		{KindInvalidToolName, false},
		{KindConfiguration, false},
		{KindMaxIterations, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "x", nil)
			if err.Recoverable != tt.recoverable {
				t.Errorf("kind %s: recoverable = %v, want %v", tt.kind, err.Recoverable, tt.recoverable)
			}
		})
	}
}

func TestAsAgentError(t *testing.T) {
	if AsAgentError(nil) != nil {
		t.Error("nil error should convert to nil")
	}

	typed := New(KindStagnation, "looping", nil)
	if AsAgentError(typed) != typed {
		t.Error("typed error should pass through unchanged")
	}

	wrapped := AsAgentError(fmt.Errorf("plain"))
	if wrapped.Kind != KindUnknown {
		t.Errorf("plain error should wrap as UNKNOWN, got %s", wrapped.Kind)
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New(KindToolExecution, "tool failed", fmt.Errorf("oops")).
		WithContext("tool", "search")

	data, mErr := json.Marshal(err)
	if mErr != nil {
		t.Fatalf("marshal failed: %v", mErr)
	}

	var decoded map[string]any
	if uErr := json.Unmarshal(data, &decoded); uErr != nil {
		t.Fatalf("unmarshal failed: %v", uErr)
	}
	if decoded["kind"] != "TOOL_EXECUTION_ERROR" {
		t.Errorf("expected kind in JSON, got %v", decoded["kind"])
	}
	if decoded["error"] != "oops" {
		t.Errorf("expected cause in JSON, got %v", decoded["error"])
	}
}
