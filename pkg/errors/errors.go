// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Telos.
package errors

import (
	"encoding/json"
	"fmt"
)

// Kind classifies Telos errors for monitoring and recovery decisions.
type Kind string

const (
	// KindToolNotFound indicates a proposed call named an unregistered tool.
	KindToolNotFound Kind = "TOOL_NOT_FOUND"

	// KindDuplicateToolName indicates a tool name was registered twice.
	KindDuplicateToolName Kind = "DUPLICATE_TOOL_NAME"

	// KindInvalidToolName indicates a tool name is not identifier-shaped.
	KindInvalidToolName Kind = "INVALID_TOOL_NAME"

	// KindToolExecution indicates a tool failed: argument validation,
	// a handler error, or an aggregated batch failure.
	KindToolExecution Kind = "TOOL_EXECUTION_ERROR"

	// KindToolTimeout indicates a tool call exceeded its time limit.
	KindToolTimeout Kind = "TOOL_TIMEOUT"

	// KindStagnation indicates the reasoning loop is repeating itself.
	KindStagnation Kind = "STAGNATION"

	// KindMaxIterations indicates the iteration or retry budget is exhausted.
	KindMaxIterations Kind = "MAX_ITERATIONS_REACHED"

	// KindOracleResponse indicates the oracle output could not be parsed.
	KindOracleResponse Kind = "ORACLE_RESPONSE_ERROR"

	// KindConfiguration indicates bad oracle or tool setup.
	KindConfiguration Kind = "CONFIGURATION_ERROR"

	// KindUnknown indicates an unclassified error.
	KindUnknown Kind = "UNKNOWN"
)

// AgentError is a typed error carried through the reasoning loop.
// It implements the error interface and unwraps to its cause.
type AgentError struct {
	Kind        Kind
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AgentError) MarshalJSON() ([]byte, error) {
	payload := struct {
		Kind        string         `json:"kind"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
		Recoverable bool           `json:"recoverable"`
	}{
		Kind:        string(e.Kind),
		Message:     e.Message,
		Context:     e.Context,
		Recoverable: e.Recoverable,
	}
	if e.Err != nil {
		payload.Err = e.Err.Error()
	}
	return json.Marshal(payload)
}

// New creates a new AgentError with the given kind, message, and cause.
func New(kind Kind, msg string, cause error) *AgentError {
	return &AgentError{
		Kind:        kind,
		Message:     msg,
		Err:         cause,
		Context:     make(map[string]any),
		Recoverable: defaultRecoverable(kind),
	}
}

// Newf creates a new AgentError with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *AgentError {
	return New(kind, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AgentError) WithContext(key string, value any) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
func (e *AgentError) WithRecoverable(recoverable bool) *AgentError {
	e.Recoverable = recoverable
	return e
}

// AsAgentError converts an error to an AgentError, wrapping unknown
// errors under KindUnknown. Returns nil for a nil error.
func AsAgentError(err error) *AgentError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AgentError); ok {
		return ae
	}
	return New(KindUnknown, "wrapped error", err)
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ae, ok := err.(*AgentError); ok {
		return ae.Kind
	}
	return KindUnknown
}

// defaultRecoverable maps kinds to a retry default. Setup-time failures
// and exhausted budgets are final; transient tool and oracle faults retry.
func defaultRecoverable(kind Kind) bool {
	switch kind {
	case KindDuplicateToolName, KindInvalidToolName, KindConfiguration, KindMaxIterations:
		return false
	default:
		return true
	}
}
