// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	m := &MockProvider{Response: "hello"}
	out, err := m.Complete(context.Background(), "prompt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected hello, got %q", out)
	}
}

func TestFailingMockProvider(t *testing.T) {
	f := &FailingMockProvider{}
	if _, err := f.Complete(context.Background(), "prompt", Options{}); err == nil {
		t.Error("failing provider should always error")
	}
}

func TestScriptedMockProvider(t *testing.T) {
	s := NewScriptedMockProvider("one", "two")

	for i, want := range []string{"one", "two"} {
		got, err := s.Complete(context.Background(), "p", Options{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: got %q, want %q", i, got, want)
		}
	}

	if _, err := s.Complete(context.Background(), "p", Options{}); err == nil {
		t.Error("exhausted script should error")
	}
	if s.CallCount != 3 {
		t.Errorf("expected 3 calls recorded, got %d", s.CallCount)
	}
}

func TestScriptedMockProviderRepeat(t *testing.T) {
	s := NewScriptedMockProvider("only")
	s.Repeat = true

	for i := 0; i < 3; i++ {
		got, err := s.Complete(context.Background(), "p", Options{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != "only" {
			t.Errorf("call %d: got %q", i, got)
		}
	}
}

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"response":"generated text","done":true}`))
	}))
	defer server.Close()

	p := NewOllama(server.URL)
	out, err := p.Complete(context.Background(), "prompt", Options{Model: "test-model"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "generated text" {
		t.Errorf("got %q", out)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewOllama(server.URL)
	if _, err := p.Complete(context.Background(), "prompt", Options{}); err == nil {
		t.Error("non-200 status should error")
	}
}
