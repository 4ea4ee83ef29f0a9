// SPDX-License-Identifier: Apache-2.0

// Package history provides optional, observational persistence of executed
// tool calls. The store is an audit trail for inspection after a run; it is
// never read back to seed conversation state.
package history

import (
	"context"
	"time"

	"github.com/jllopis/telos/pkg/core"
)

// Event is one executed call as recorded for audit.
type Event struct {
	RunID      string
	Iteration  int
	ToolName   string
	Status     string
	Output     any
	Error      string
	RecordedAt time.Time
}

// Statuses recorded for audit events.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Filter narrows a List query. Zero fields match everything.
type Filter struct {
	RunID    string
	ToolName string
	Status   string
	Limit    int
}

// Recorder accepts audit events. The iteration controller writes through
// this interface so callers can plug any backend.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Store is a queryable Recorder.
type Store interface {
	Recorder
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// EventFromResult builds an audit event for an execution result.
func EventFromResult(runID string, iteration int, result core.ExecutionResult) Event {
	status := StatusSuccess
	if !result.Success {
		status = StatusFailure
	}
	return Event{
		RunID:      runID,
		Iteration:  iteration,
		ToolName:   result.ToolName,
		Status:     status,
		Output:     result.Output,
		Error:      result.Error,
		RecordedAt: time.Now().UTC(),
	}
}
