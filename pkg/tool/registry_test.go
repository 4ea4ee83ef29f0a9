// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"testing"
	"time"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

func noopHandler(_ context.Context, _ map[string]any, _ *core.TurnState) (any, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(core.Tool{Name: "read_files", Handler: noopHandler}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	tool, ok := r.Get("read_files")
	if !ok {
		t.Fatal("registered tool not found")
	}
	if tool.Timeout != DefaultTimeout {
		t.Errorf("default timeout should be back-filled, got %v", tool.Timeout)
	}
}

func TestDuplicateRegistrationFailsFast(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(core.Tool{Name: "search", Handler: noopHandler}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	err := r.Register(core.Tool{Name: "search", Handler: noopHandler})
	if errors.KindOf(err) != errors.KindDuplicateToolName {
		t.Errorf("expected DUPLICATE_TOOL_NAME, got %v", err)
	}
}

func TestInvalidToolNames(t *testing.T) {
	r := NewRegistry()
	tests := []string{"has space", "", "1leading", "semi;colon", "dot.name"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			err := r.Register(core.Tool{Name: name, Handler: noopHandler})
			if errors.KindOf(err) != errors.KindInvalidToolName {
				t.Errorf("name %q: expected INVALID_TOOL_NAME, got %v", name, err)
			}
		})
	}
}

func TestRegisterWithoutHandler(t *testing.T) {
	r := NewRegistry()
	err := r.Register(core.Tool{Name: "ghost"})
	if errors.KindOf(err) != errors.KindConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestNamesPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := r.Register(core.Tool{Name: name, Handler: noopHandler}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names := r.Names()
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %s, want %s", i, names[i], name)
		}
	}
}

func TestEnsureTerminalIdempotent(t *testing.T) {
	r := NewRegistry()
	if err := r.EnsureTerminal(); err != nil {
		t.Fatalf("first EnsureTerminal failed: %v", err)
	}
	if err := r.EnsureTerminal(); err != nil {
		t.Fatalf("second EnsureTerminal should be a no-op, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected exactly one terminal tool, got %d tools", r.Len())
	}

	terminal, _ := r.Get(TerminalToolName)
	state := core.NewTurnState()
	out, err := terminal.Handler(context.Background(), map[string]any{"answer": "done"}, state)
	if err != nil {
		t.Fatalf("terminal handler failed: %v", err)
	}
	if out != "done" {
		t.Errorf("terminal handler should echo the answer, got %v", out)
	}
	if state.GetString(core.FinalAnswerKey) != "done" {
		t.Error("terminal handler should stash the answer in turn state")
	}
}

func TestManifestApply(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"fetch", "parse", "store"} {
		if err := r.Register(core.Tool{Name: name, Handler: noopHandler}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	manifest, err := LoadManifest([]byte(`
tools:
  parse:
    depends_on: [fetch]
  store:
    depends_on: [parse]
    timeout: 45s
`))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if err := manifest.Apply(r); err != nil {
		t.Fatalf("apply manifest: %v", err)
	}

	parse, _ := r.Get("parse")
	if len(parse.DependsOn) != 1 || parse.DependsOn[0] != "fetch" {
		t.Errorf("parse dependencies = %v, want [fetch]", parse.DependsOn)
	}
	store, _ := r.Get("store")
	if store.Timeout != 45*time.Second {
		t.Errorf("store timeout = %v, want 45s", store.Timeout)
	}
}

func TestManifestUnknownTool(t *testing.T) {
	r := NewRegistry()
	manifest, err := LoadManifest([]byte("tools:\n  ghost:\n    timeout: 1s\n"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if err := manifest.Apply(r); errors.KindOf(err) != errors.KindConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR for unknown tool, got %v", err)
	}
}

func TestManifestUnknownDependency(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(core.Tool{Name: "solo", Handler: noopHandler}); err != nil {
		t.Fatal(err)
	}
	manifest, err := LoadManifest([]byte("tools:\n  solo:\n    depends_on: [missing]\n"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if err := manifest.Apply(r); errors.KindOf(err) != errors.KindConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR for unknown dependency, got %v", err)
	}
}
