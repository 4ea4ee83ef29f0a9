// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"testing"

	"github.com/jllopis/telos/pkg/core"
)

func TestHashArgsKeyOrderInvariance(t *testing.T) {
	a := map[string]any{"filename": "same.txt", "mode": "read", "limit": float64(5)}
	b := map[string]any{"limit": float64(5), "filename": "same.txt", "mode": "read"}

	if HashArgs(a) != HashArgs(b) {
		t.Error("hash must be invariant under key reordering")
	}
}

func TestHashArgsIdempotent(t *testing.T) {
	args := map[string]any{
		"nested": map[string]any{"b": float64(2), "a": float64(1)},
		"list":   []any{"x", "y"},
	}
	first := HashArgs(args)
	second := HashArgs(args)
	if first != second {
		t.Errorf("re-hashing the same object must be stable: %s != %s", first, second)
	}
}

func TestHashArgsDistinguishesValues(t *testing.T) {
	a := HashArgs(map[string]any{"filename": "f1.txt"})
	b := HashArgs(map[string]any{"filename": "f4.txt"})
	if a == b {
		t.Error("different argument values must hash differently")
	}
}

func TestHashArgsNestedOrderInvariance(t *testing.T) {
	a := map[string]any{"q": map[string]any{"x": float64(1), "y": float64(2)}}
	b := map[string]any{"q": map[string]any{"y": float64(2), "x": float64(1)}}
	if HashArgs(a) != HashArgs(b) {
		t.Error("nested map key order must not affect the hash")
	}
}

func TestHashArgsUnhashableDegrades(t *testing.T) {
	type opaque struct{ ch chan int }
	args := map[string]any{"weird": opaque{}}

	// Must not panic, and must be stable.
	first := HashArgs(args)
	second := HashArgs(args)
	if first != second {
		t.Error("unhashable input should degrade to a stable placeholder digest")
	}
}

func TestHashArgsCyclicDegrades(t *testing.T) {
	args := map[string]any{}
	args["self"] = args

	done := make(chan string, 1)
	go func() { done <- HashArgs(args) }()
	first := <-done
	if first == "" {
		t.Error("cyclic input must still produce a digest")
	}
}

func TestCallKey(t *testing.T) {
	sig := CallKey("read_files", map[string]any{"filename": "same.txt"})
	if sig.ToolName != "read_files" {
		t.Errorf("unexpected tool name %q", sig.ToolName)
	}
	if sig.ArgHash == "" {
		t.Error("expected a non-empty arg hash")
	}
	if sig.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestResultDigest(t *testing.T) {
	ok := core.ExecutionResult{ToolName: "a", Success: true, Output: "hello"}
	okAgain := core.ExecutionResult{ToolName: "b", Success: true, Output: "hello"}
	failed := core.ExecutionResult{ToolName: "a", Success: false, Error: "boom"}

	if ResultDigest(ok) != ResultDigest(okAgain) {
		t.Error("identical outcomes of unrelated tools should compare equal")
	}
	if ResultDigest(ok) == ResultDigest(failed) {
		t.Error("success and failure must not share a digest")
	}
}
