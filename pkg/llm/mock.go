// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response     string
	Err          error
	CompleteFunc func(ctx context.Context, prompt string, opts Options) (string, error)
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, opts)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Complete(context.Context, string, Options) (string, error) {
	if f.Err == nil {
		return "", fmt.Errorf("mock error")
	}
	return "", f.Err
}
