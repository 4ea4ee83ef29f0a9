// SPDX-License-Identifier: Apache-2.0

// Package tool implements the tool registry: dynamic dispatch over tool
// names with O(1) lookup, name uniqueness and shape validated at
// registration rather than at call time.
package tool

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

// DefaultTimeout is back-filled for tools that declare none.
const DefaultTimeout = 30 * time.Second

// TerminalToolName is the reserved tool whose invocation ends a run.
const TerminalToolName = "final"

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Registry holds registered tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*core.Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*core.Tool)}
}

// Register adds a tool. It fails fast with a typed error on a duplicate
// or malformed name, and back-fills the default timeout.
func (r *Registry) Register(t core.Tool) error {
	if !namePattern.MatchString(t.Name) {
		return errors.Newf(errors.KindInvalidToolName, "tool name %q is not identifier-shaped", t.Name)
	}
	if t.Handler == nil {
		return errors.Newf(errors.KindConfiguration, "tool %q has no handler", t.Name)
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return errors.Newf(errors.KindDuplicateToolName, "tool %q already registered", t.Name)
	}
	r.tools[t.Name] = &t
	r.order = append(r.order, t.Name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []*core.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// EnsureTerminal registers the reserved terminal tool if it is not already
// present. Defining it twice is a no-op, not an error. The default terminal
// handler stashes its answer argument in the turn state and echoes it back.
func (r *Registry) EnsureTerminal() error {
	if r.Has(TerminalToolName) {
		return nil
	}
	return r.Register(core.Tool{
		Name:        TerminalToolName,
		Description: "Finish the run and report the final answer.",
		Schema: &core.Schema{
			Properties: map[string]core.Property{
				"answer": {Type: "string", Description: "The final answer."},
			},
			Required: []string{"answer"},
		},
		Handler: func(_ context.Context, args map[string]any, state *core.TurnState) (any, error) {
			answer, _ := args["answer"].(string)
			state.Set(core.FinalAnswerKey, answer)
			return answer, nil
		},
	})
}
