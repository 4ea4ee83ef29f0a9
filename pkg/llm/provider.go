// SPDX-License-Identifier: Apache-2.0

// Package llm defines the reasoning-oracle contract consumed by the
// iteration controller, plus local and testing implementations.
package llm

import "context"

// Options tune a single completion request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is the reasoning oracle: prompt text in, completion text out.
// Any failure is treated uniformly by the caller and retried under its
// retry budget.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}
