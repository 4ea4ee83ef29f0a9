// SPDX-License-Identifier: Apache-2.0

// Package scheduler turns a flat batch of proposed tool calls into a safely
// ordered, partially parallel execution. Calls are grouped into one node per
// tool name; a node starts only once every in-batch dependency has finished
// successfully, and a failed node cascades automatic skips to its transitive
// dependents. Cyclic batches are rejected before any handler runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/tool"
)

// Scheduler executes proposed-call batches against a tool registry.
// It is safe for concurrent use; per-batch state lives on the stack.
type Scheduler struct {
	registry *tool.Registry
	logger   *slog.Logger
	tracer   trace.Tracer

	callSuccesses metric.Int64Counter
	callFailures  metric.Int64Counter
}

// New creates a scheduler over the given registry.
func New(registry *tool.Registry, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		registry: registry,
		logger:   logger,
		tracer:   otel.Tracer("telos/scheduler"),
	}
	meter := otel.Meter("telos/scheduler")
	// Metric creation failures degrade observability only.
	s.callSuccesses, _ = meter.Int64Counter("telos_tool_call_success_total",
		metric.WithDescription("Number of successful tool calls"))
	s.callFailures, _ = meter.Int64Counter("telos_tool_call_failure_total",
		metric.WithDescription("Number of failed tool calls"))
	return s
}

// nodeOutcome is sent back to the coordinating loop when a node finishes.
type nodeOutcome struct {
	name    string
	results []core.ExecutionResult
	failed  bool
}

// Execute runs one batch. It returns one result per proposed call, plus
// synthetic results for skipped and invalid calls. Ordering guarantee: a
// dependency's results are appended before any of its dependents' results;
// independent nodes interleave in unspecified order.
func (s *Scheduler) Execute(ctx context.Context, batch []core.ProposedCall, state *core.TurnState) []core.ExecutionResult {
	var results []core.ExecutionResult
	valid := make([]core.ProposedCall, 0, len(batch))
	for _, call := range batch {
		if s.registry.Has(call.Name) {
			valid = append(valid, call)
			continue
		}
		results = append(results, failureResult(call.Name, errors.KindToolNotFound,
			fmt.Sprintf("tool not found: %s", call.Name)))
	}
	if len(valid) == 0 {
		return results
	}

	nodes := buildGraph(valid, s.registry.Get)
	if path, cyclic := findCycle(nodes); cyclic {
		s.logger.Warn("rejecting cyclic batch", slog.String("cycle", path))
		// Attribute the rejection to the first tool on the cycle path so
		// the record stays traceable in history.
		first, _, _ := strings.Cut(path, " -> ")
		results = append(results, failureResult(first, errors.KindToolExecution,
			fmt.Sprintf("dependency cycle detected: %s", path)))
		return results
	}

	done := make(chan nodeOutcome)
	running := 0
	for _, n := range nodes {
		if n.pending == 0 {
			s.startNode(ctx, n, state, done)
			running++
		}
	}

	for running > 0 {
		out := <-done
		running--
		n := nodes[out.name]
		results = append(results, out.results...)
		if !out.failed {
			n.state = stateFinished
			for _, depName := range n.dependents {
				dependent := nodes[depName]
				if dependent.state != statePending {
					continue
				}
				dependent.pending--
				if dependent.pending == 0 {
					s.startNode(ctx, dependent, state, done)
					running++
				}
			}
			continue
		}
		n.state = stateFailed
		results = append(results, s.cascadeSkips(nodes, n)...)
	}
	return results
}

// startNode launches a node's calls in a goroutine and reports the outcome
// on done.
func (s *Scheduler) startNode(ctx context.Context, n *node, state *core.TurnState, done chan<- nodeOutcome) {
	n.state = stateRunning
	go func() {
		ctx, span := s.tracer.Start(ctx, "Scheduler.Node", trace.WithAttributes(
			attribute.String("tool.name", n.name),
			attribute.Int("tool.calls", len(n.calls)),
		))
		defer span.End()

		outcome := nodeOutcome{name: n.name}
		for _, call := range n.calls {
			result := s.runCall(ctx, call, n.tool, state)
			outcome.results = append(outcome.results, result)
			if !result.Success {
				outcome.failed = true
			}
		}
		done <- outcome
	}()
}

// runCall validates and executes a single proposed call, recovering any
// handler panic and racing the handler against the tool's timeout.
func (s *Scheduler) runCall(ctx context.Context, call core.ProposedCall, t *core.Tool, state *core.TurnState) core.ExecutionResult {
	if err := t.Schema.Validate(call.Arguments); err != nil {
		s.count(ctx, s.callFailures, t.Name)
		return failureResult(t.Name, errors.KindToolExecution,
			fmt.Sprintf("argument validation failed: %v", err))
	}

	output, err := resilience.WithTimeoutResult(ctx, t.Timeout, func(ctx context.Context) (out any, runErr error) {
		defer func() {
			if r := recover(); r != nil {
				runErr = errors.Newf(errors.KindToolExecution, "handler panic: %v", r)
			}
		}()
		return t.Handler(ctx, call.Arguments, state)
	})
	if err != nil {
		kind := errors.KindOf(err)
		if kind != errors.KindToolTimeout {
			kind = errors.KindToolExecution
		}
		s.count(ctx, s.callFailures, t.Name)
		s.logger.Warn("tool call failed",
			slog.String("tool", t.Name),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return failureResult(t.Name, kind, err.Error())
	}

	s.count(ctx, s.callSuccesses, t.Name)
	s.logger.Debug("tool call succeeded", slog.String("tool", t.Name))
	return core.ExecutionResult{
		ToolName: t.Name,
		Success:  true,
		Output:   output,
		Context:  map[string]any{"call_id": call.ID},
	}
}

// cascadeSkips marks every transitive dependent of a failed node as skipped
// without invoking its handler. Each dependent receives at most one skip
// result per proposed call even when several failed dependencies reach it.
func (s *Scheduler) cascadeSkips(nodes map[string]*node, failed *node) []core.ExecutionResult {
	var results []core.ExecutionResult
	var walk func(n *node, cause string)
	walk = func(n *node, cause string) {
		for _, depName := range n.dependents {
			dependent := nodes[depName]
			if dependent.state == stateSkipped || dependent.state == stateFailed {
				continue
			}
			dependent.state = stateSkipped
			for range dependent.calls {
				results = append(results, failureResult(dependent.name, errors.KindToolExecution,
					fmt.Sprintf("skipped due to failure in dependency %q", cause)))
			}
			s.logger.Debug("skipping dependent tool",
				slog.String("tool", dependent.name),
				slog.String("failed_dependency", cause),
			)
			walk(dependent, cause)
		}
	}
	walk(failed, failed.name)
	return results
}

func (s *Scheduler) count(ctx context.Context, counter metric.Int64Counter, toolName string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
}

func failureResult(toolName string, kind errors.Kind, message string) core.ExecutionResult {
	return core.ExecutionResult{
		ToolName: toolName,
		Success:  false,
		Error:    message,
		Context:  map[string]any{"error_kind": string(kind)},
	}
}
