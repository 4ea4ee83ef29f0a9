// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/history"
	"github.com/jllopis/telos/pkg/prompt"
	"github.com/jllopis/telos/pkg/signature"
	"github.com/jllopis/telos/pkg/stagnation"
	"github.com/jllopis/telos/pkg/tool"
)

// maxWindow bounds the stagnation detection window kept per run.
const maxWindow = 32

// Run drives the reasoning loop for one input. It never returns an error:
// any failure, including a panic inside the loop, is converted into a
// failure final answer inside a structured output that always carries the
// full call history.
func (a *Agent) Run(ctx context.Context, input string) (out *core.RunOutput) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := a.tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.id", a.id),
			attribute.String("run.id", runID),
		))
	defer span.End()

	callHistory := append([]core.ExecutionResult(nil), a.prior...)
	iterations := 0

	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf(errors.KindUnknown, "run panicked: %v", r)
			out = a.failOutput(ctx, runID, callHistory, iterations, err)
		}
		if a.hooks != nil && a.hooks.OnRunEnd != nil {
			a.hooks.OnRunEnd(ctx, runID, out)
		}
	}()

	if a.hooks != nil && a.hooks.OnRunStart != nil {
		a.hooks.OnRunStart(ctx, runID, input)
	}

	if err := a.registry.EnsureTerminal(); err != nil {
		return a.failOutput(ctx, runID, callHistory, iterations, err)
	}

	state := core.NewTurnState()
	var window []stagnation.Record
	keepRetry := true
	parseFailures := 0
	lastError := ""
	repeatedError := ""
	repeatCount := 0

	for iter := 1; iter <= a.cfg.MaxIterations; iter++ {
		iterations = iter
		iterCtx := core.WithIteration(ctx, iter)
		if a.hooks != nil && a.hooks.OnIterationStart != nil {
			a.hooks.OnIterationStart(iterCtx, iter)
		}
		a.logger.Debug("iteration start", "run_id", runID, "iteration", iter)

		completion, err := a.consultOracle(iterCtx, input, callHistory, lastError, keepRetry)
		if err != nil {
			return a.failOutput(iterCtx, runID, callHistory, iter, err)
		}

		batch, err := a.parse(completion)
		if err != nil {
			parseFailures++
			lastError = err.Error()
			a.hooks.FireError(iterCtx, err)
			a.logger.Warn("oracle response unparsable",
				"run_id", runID, "iteration", iter, "failures", parseFailures, "error", err)
			if parseFailures > a.cfg.RetryAttempts {
				budget := errors.New(errors.KindMaxIterations,
					fmt.Sprintf("oracle produced unparsable output %d times", parseFailures), err)
				return a.failOutput(iterCtx, runID, callHistory, iter, budget)
			}
			a.pause(iterCtx, iter)
			continue
		}
		// A parsable completion restarts the consecutive-failure budget.
		parseFailures = 0

		forced, warning := a.screenBatch(iterCtx, batch, window, callHistory)
		if forced != nil {
			callHistory = append(callHistory, *forced)
			if a.hooks != nil && a.hooks.OnFinalAnswer != nil {
				a.hooks.OnFinalAnswer(iterCtx, *forced)
			}
			return &core.RunOutput{FinalAnswer: *forced, History: callHistory, Iterations: iter, RunID: runID}
		}
		if warning != nil {
			callHistory = append(callHistory, *warning)
			keepRetry = false
		}

		window, batchStart := appendWindow(window, batch)

		if a.hooks != nil && a.hooks.OnToolCallStart != nil {
			for _, call := range batch {
				a.hooks.OnToolCallStart(iterCtx, call)
			}
		}

		var results []core.ExecutionResult
		if a.cfg.Sequential {
			results = a.sched.ExecuteSequential(iterCtx, batch, state)
		} else {
			results = a.sched.Execute(iterCtx, batch, state)
		}
		callHistory = append(callHistory, results...)
		backfillWindow(window[batchStart:], results)
		window = trimWindow(window)
		a.fireCallEnds(iterCtx, batch, results)
		a.recordAudit(iterCtx, runID, iter, results)

		if a.hooks != nil && a.hooks.OnIterationEnd != nil {
			a.hooks.OnIterationEnd(iterCtx, iter, results)
		}

		if final, ok := findTerminal(results); ok {
			if a.hooks != nil && a.hooks.OnFinalAnswer != nil {
				a.hooks.OnFinalAnswer(iterCtx, final)
			}
			return &core.RunOutput{FinalAnswer: final, History: callHistory, Iterations: iter, RunID: runID}
		}

		failures := failedResults(results)
		if len(failures) > 0 {
			batchErr := batchError(failures)
			a.hooks.FireError(iterCtx, batchErr)
			lastError = batchErr.Message
			if lastError == repeatedError {
				repeatCount++
			} else {
				repeatedError = lastError
				repeatCount = 1
			}
			if repeatCount >= a.cfg.RetryAttempts {
				budget := errors.New(errors.KindMaxIterations,
					fmt.Sprintf("same tool error repeated %d times: %s", repeatCount, lastError), batchErr)
				return a.failOutput(iterCtx, runID, callHistory, iter, budget)
			}
			if repeatCount >= a.cfg.RetryAttempts-1 {
				keepRetry = false
			}
		} else {
			lastError = ""
			repeatedError = ""
			repeatCount = 0
		}

		a.pause(iterCtx, iter)
	}

	budget := errors.Newf(errors.KindMaxIterations,
		"no terminal answer after %d iterations", a.cfg.MaxIterations)
	return a.failOutput(ctx, runID, callHistory, iterations, budget)
}

// consultOracle renders the prompt, applies the prompt-rewrite hook, and
// calls the provider under the retry policy.
func (a *Agent) consultOracle(ctx context.Context, input string, callHistory []core.ExecutionResult, lastError string, keepRetry bool) (string, error) {
	text := a.renderer.Render(prompt.Input{
		SystemPrompt: a.cfg.SystemPrompt,
		UserPrompt:   input,
		Context:      a.cfg.Context,
		History:      callHistory,
		LastError:    lastError,
		RetryEnabled: keepRetry,
		Tools:        a.registry.Tools(),
	})
	text = a.hooks.TransformPrompt(ctx, text)

	if a.hooks != nil && a.hooks.OnOracleStart != nil {
		a.hooks.OnOracleStart(ctx, text)
	}
	result, err := a.retry.DoWithResult(ctx, func() (any, error) {
		return a.provider.Complete(ctx, text, a.cfg.OracleOptions)
	})
	completion, _ := result.(string)
	if a.hooks != nil && a.hooks.OnOracleEnd != nil {
		a.hooks.OnOracleEnd(ctx, completion, err)
	}
	if err != nil {
		return "", errors.New(errors.KindUnknown, "oracle call failed after retries", err)
	}
	return completion, nil
}

// screenBatch consults the stagnation detector for each proposed call.
// It returns a forced terminal result when confidence reaches the stop
// threshold, or a single warning result when it crosses the warn
// threshold. Only one warning is issued per iteration.
func (a *Agent) screenBatch(ctx context.Context, batch []core.ProposedCall, window []stagnation.Record, callHistory []core.ExecutionResult) (forced, warning *core.ExecutionResult) {
	for _, call := range batch {
		sig := signature.CallKey(call.Name, call.Arguments)
		verdict := a.detector.Evaluate(window, sig)
		if !verdict.Stagnant {
			continue
		}
		if verdict.Confidence >= a.cfg.StagnationStop {
			a.logger.Warn("stagnation circuit breaker tripped",
				"tool", call.Name, "reason", verdict.Reason, "confidence", verdict.Confidence)
			result := a.forcedTerminal(callHistory, verdict)
			return &result, nil
		}
		if verdict.Confidence > a.cfg.StagnationWarn {
			a.logger.Warn("stagnation warning",
				"tool", call.Name, "reason", verdict.Reason, "confidence", verdict.Confidence)
			err := errors.New(errors.KindStagnation, verdict.Reason, nil).
				WithContext("tool", call.Name).
				WithContext("confidence", verdict.Confidence)
			a.hooks.FireError(ctx, err)
			result := core.ExecutionResult{
				ToolName: call.Name,
				Success:  false,
				Error:    "stagnation warning: " + verdict.Reason,
				Context: map[string]any{
					"error_kind": string(errors.KindStagnation),
					"confidence": verdict.Confidence,
				},
			}
			return nil, &result
		}
	}
	return nil, nil
}

// forcedTerminal synthesizes the final answer used by the hard circuit
// breaker: a progress summary of the run so far.
func (a *Agent) forcedTerminal(callHistory []core.ExecutionResult, verdict stagnation.Verdict) core.ExecutionResult {
	successByTool := make(map[string]int)
	failureCount := 0
	for _, result := range callHistory {
		if result.Success {
			successByTool[result.ToolName]++
		} else {
			failureCount++
		}
	}
	return core.ExecutionResult{
		ToolName: tool.TerminalToolName,
		Success:  true,
		Output: map[string]any{
			"summary":          "run terminated early: " + verdict.Reason,
			"successful_calls": successByTool,
			"failed_calls":     failureCount,
		},
		Context: map[string]any{
			"forced_termination": true,
			"confidence":         verdict.Confidence,
		},
	}
}

// failOutput converts an escalated error into the run's failure answer.
func (a *Agent) failOutput(ctx context.Context, runID string, callHistory []core.ExecutionResult, iterations int, err error) *core.RunOutput {
	a.hooks.FireError(ctx, err)
	a.logger.Error("run failed", "run_id", runID, "iterations", iterations, "error", err)
	final := core.ExecutionResult{
		ToolName: tool.TerminalToolName,
		Success:  false,
		Error:    err.Error(),
		Context:  map[string]any{"error_kind": string(errors.KindOf(err))},
	}
	callHistory = append(callHistory, final)
	if a.hooks != nil && a.hooks.OnFinalAnswer != nil {
		a.hooks.OnFinalAnswer(ctx, final)
	}
	return &core.RunOutput{FinalAnswer: final, History: callHistory, Iterations: iterations, RunID: runID}
}

func (a *Agent) pause(ctx context.Context, iter int) {
	if a.cfg.IterationDelay <= 0 || iter >= a.cfg.MaxIterations {
		return
	}
	timer := time.NewTimer(a.cfg.IterationDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (a *Agent) fireCallEnds(ctx context.Context, batch []core.ProposedCall, results []core.ExecutionResult) {
	if a.hooks == nil || a.hooks.OnToolCallEnd == nil {
		return
	}
	// Pair each result with the first unmatched call for its tool.
	byTool := make(map[string][]core.ProposedCall)
	for _, call := range batch {
		byTool[call.Name] = append(byTool[call.Name], call)
	}
	for _, result := range results {
		calls := byTool[result.ToolName]
		if len(calls) == 0 {
			continue
		}
		a.hooks.OnToolCallEnd(ctx, calls[0], result)
		byTool[result.ToolName] = calls[1:]
	}
}

func (a *Agent) recordAudit(ctx context.Context, runID string, iter int, results []core.ExecutionResult) {
	if a.audit == nil {
		return
	}
	for _, result := range results {
		event := history.EventFromResult(runID, iter, result)
		if err := a.audit.Record(ctx, event); err != nil {
			a.logger.Warn("audit record failed", "run_id", runID, "tool", result.ToolName, "error", err)
		}
	}
}

// appendWindow adds a pending record per proposed call and returns the
// index where the batch's records begin.
func appendWindow(window []stagnation.Record, batch []core.ProposedCall) ([]stagnation.Record, int) {
	start := len(window)
	for _, call := range batch {
		window = append(window, stagnation.Record{
			Signature: signature.CallKey(call.Name, call.Arguments),
		})
	}
	return window, start
}

// backfillWindow fills execution outcomes into the batch's pending
// records, matching each result to the first unresolved record for its
// tool name.
func backfillWindow(pending []stagnation.Record, results []core.ExecutionResult) {
	for _, result := range results {
		for i := range pending {
			if pending[i].HasResult || pending[i].Signature.ToolName != result.ToolName {
				continue
			}
			pending[i].HasResult = true
			pending[i].Success = result.Success
			pending[i].OutputDigest = signature.ResultDigest(result)
			pending[i].ErrorMessage = result.Error
			break
		}
	}
}

func trimWindow(window []stagnation.Record) []stagnation.Record {
	if len(window) <= maxWindow {
		return window
	}
	return window[len(window)-maxWindow:]
}

func findTerminal(results []core.ExecutionResult) (core.ExecutionResult, bool) {
	for _, result := range results {
		if result.ToolName == tool.TerminalToolName {
			return result, true
		}
	}
	return core.ExecutionResult{}, false
}

func failedResults(results []core.ExecutionResult) []core.ExecutionResult {
	var failed []core.ExecutionResult
	for _, result := range results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

func batchError(failures []core.ExecutionResult) *errors.AgentError {
	msg := failures[0].Error
	if len(failures) > 1 {
		msg = fmt.Sprintf("%d calls failed, first: %s", len(failures), failures[0].Error)
	}
	err := errors.New(errors.KindToolExecution, msg, nil)
	for _, f := range failures {
		err = err.WithContext("failed:"+f.ToolName, f.Error)
	}
	return err
}
