// SPDX-License-Identifier: Apache-2.0

package core

import "sync"

// FinalAnswerKey is the turn-state key under which the terminal tool
// stores the run's final answer.
const FinalAnswerKey = "final_answer"

// TurnState is the mutable key-value store shared by every handler within a
// single run. One is created per run and falls out of scope when the run
// returns. It is safe for concurrent use during a parallel batch; writes to
// the same key resolve last-writer-wins.
type TurnState struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewTurnState creates an empty turn state.
func NewTurnState() *TurnState {
	return &TurnState{values: make(map[string]any)}
}

// Set stores value under key.
func (s *TurnState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value stored under key.
func (s *TurnState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// GetString returns the string stored under key, or "" if absent or
// of another type.
func (s *TurnState) GetString(key string) string {
	value, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

// Delete removes key from the state.
func (s *TurnState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Keys returns a snapshot of the stored keys.
func (s *TurnState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of stored entries.
func (s *TurnState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
