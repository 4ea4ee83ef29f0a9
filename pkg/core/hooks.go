// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// Hooks are optional lifecycle callbacks fired by the iteration controller.
// All fields may be nil. Every hook is purely observational except
// OnPromptCreated, which may transform the prompt text before the oracle
// sees it.
type Hooks struct {
	OnRunStart       func(ctx context.Context, runID string, input string)
	OnRunEnd         func(ctx context.Context, runID string, output *RunOutput)
	OnIterationStart func(ctx context.Context, iteration int)
	OnIterationEnd   func(ctx context.Context, iteration int, results []ExecutionResult)
	OnPromptCreated  func(ctx context.Context, prompt string) string
	OnOracleStart    func(ctx context.Context, prompt string)
	OnOracleEnd      func(ctx context.Context, completion string, err error)
	OnToolCallStart  func(ctx context.Context, call ProposedCall)
	OnToolCallEnd    func(ctx context.Context, call ProposedCall, result ExecutionResult)
	OnFinalAnswer    func(ctx context.Context, answer ExecutionResult)
	OnError          func(ctx context.Context, err error)
}

// TransformPrompt applies the prompt-creation hook if set.
func (h *Hooks) TransformPrompt(ctx context.Context, prompt string) string {
	if h == nil || h.OnPromptCreated == nil {
		return prompt
	}
	return h.OnPromptCreated(ctx, prompt)
}

// FireError notifies the error hook if set.
func (h *Hooks) FireError(ctx context.Context, err error) {
	if h == nil || h.OnError == nil || err == nil {
		return
	}
	h.OnError(ctx, err)
}
