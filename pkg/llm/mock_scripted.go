// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedMockProvider returns a pre-defined sequence of completions.
// Useful for testing multi-iteration reasoning loops.
type ScriptedMockProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// CallCount tracks how many times Complete has been called.
	CallCount int
	// Repeat keeps returning the last response once the script runs out
	// instead of failing.
	Repeat bool

	last string
}

// NewScriptedMockProvider creates a provider that pops responses in order.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	return &ScriptedMockProvider{Responses: responses}
}

// Complete pops the next scripted response or returns the configured error.
func (s *ScriptedMockProvider) Complete(_ context.Context, _ string, _ Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		if s.Repeat && s.last != "" {
			return s.last, nil
		}
		return "", errors.New("scripted mock: no more responses available")
	}

	s.last = s.Responses[0]
	s.Responses = s.Responses[1:]
	return s.last, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedMockProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, response)
}
