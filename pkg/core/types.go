// SPDX-License-Identifier: Apache-2.0

// Package core defines the shared data model of the Telos reasoning loop:
// tool definitions, proposed calls, execution results, per-turn state, and
// the lifecycle hook surface.
package core

import (
	"context"
	"time"
)

// Handler executes a tool call. It receives the validated arguments and the
// shared turn state, and may read or write the state. A handler error is
// recovered into a failure ExecutionResult; it never aborts the run.
type Handler func(ctx context.Context, args map[string]any, state *TurnState) (any, error)

// Tool is a registered capability the oracle can invoke by name.
// Tools are registered once before a run and are immutable thereafter,
// except that a default timeout is back-filled at registration.
type Tool struct {
	// Name is the unique, identifier-shaped tool name.
	Name string

	// Description is shown to the oracle in the prompt.
	Description string

	// Schema validates raw arguments before the handler runs. Optional.
	Schema *Schema

	// Handler executes the call.
	Handler Handler

	// DependsOn lists tool names whose in-batch calls must finish
	// successfully before this tool's calls start.
	DependsOn []string

	// Timeout bounds a single handler invocation.
	Timeout time.Duration
}

// ProposedCall is a single tool invocation proposed by the oracle,
// parsed from text but not yet validated against the tool's schema.
type ProposedCall struct {
	// ID identifies the call within a run, for hooks and audit.
	ID string

	// Name is the proposed tool name.
	Name string

	// Arguments are the raw, unvalidated arguments.
	Arguments map[string]any
}

// ExecutionResult records the outcome of one proposed call. Results are
// appended to the run's ordered call history and never mutated; the
// history is the single source of truth for what happened.
type ExecutionResult struct {
	// ToolName is the tool the result belongs to.
	ToolName string `json:"tool_name"`

	// Success reports whether the call completed without error.
	Success bool `json:"success"`

	// Output holds the handler's return value when Success is true.
	Output any `json:"output,omitempty"`

	// Error holds the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Context carries arbitrary structured detail about the outcome.
	Context map[string]any `json:"context,omitempty"`
}

// CallSignature is the comparison key of an executed or proposed call,
// used by stagnation analysis. Signatures live only inside the detection
// window and are never persisted.
type CallSignature struct {
	ToolName  string
	ArgHash   string
	Timestamp time.Time
}

// RunOutput is the structured result of a full run. A failed run has the
// same shape as a successful one; only the final record's success flag
// and error field differ.
type RunOutput struct {
	// FinalAnswer is the terminal record of the run. It may be a failure.
	FinalAnswer ExecutionResult

	// History is the complete ordered call history of the run,
	// including any caller-supplied prior history.
	History []ExecutionResult

	// Iterations is the number of completed loop iterations.
	Iterations int

	// RunID identifies the run.
	RunID string
}
