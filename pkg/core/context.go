// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}
type iterationKey struct{}

// WithRunID attaches a run id to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id if present.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// EnsureRunID ensures a run id exists in the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunID(ctx); ok {
		return ctx, id
	}
	id := NewRunID()
	return WithRunID(ctx, id), id
}

// NewRunID generates a fresh run identifier.
func NewRunID() string {
	return "run-" + uuid.NewString()
}

// NewCallID generates a fresh proposed-call identifier.
func NewCallID() string {
	return "call-" + uuid.NewString()
}

// WithIteration attaches the current iteration number to the context.
func WithIteration(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, iterationKey{}, n)
}

// Iteration returns the current iteration number if present.
func Iteration(ctx context.Context) (int, bool) {
	n, ok := ctx.Value(iterationKey{}).(int)
	return n, ok
}
