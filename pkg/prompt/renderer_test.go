// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"strings"
	"testing"

	"github.com/jllopis/telos/pkg/core"
)

func TestRenderFullInput(t *testing.T) {
	in := Input{
		SystemPrompt: "You are a careful assistant.",
		UserPrompt:   "Summarize the report.",
		Context:      map[string]any{"project": "telos"},
		History: []core.ExecutionResult{
			{ToolName: "read_files", Success: true, Output: "contents"},
			{ToolName: "search", Success: false, Error: "not found"},
		},
		LastError:    "tool batch failed",
		RetryEnabled: true,
		Tools: []*core.Tool{
			{Name: "read_files", Description: "Read a file."},
			{Name: "final", Description: "Finish the run."},
		},
	}

	out := DefaultRenderer{}.Render(in)

	for _, want := range []string{
		"You are a careful assistant.",
		"Summarize the report.",
		"read_files: Read a file.",
		"project: telos",
		"read_files: ok: contents",
		"search: failed: not found",
		"tool batch failed",
		"try again",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDegradesOnMissingFields(t *testing.T) {
	out := DefaultRenderer{}.Render(Input{UserPrompt: "just this"})
	if !strings.Contains(out, "just this") {
		t.Errorf("prompt should still carry the task: %s", out)
	}
	if strings.Contains(out, "Previous tool results") {
		t.Error("empty history should leave its section out")
	}
	if strings.Contains(out, "Context:") {
		t.Error("empty context should leave its section out")
	}
}

func TestRenderIsPure(t *testing.T) {
	in := Input{UserPrompt: "task", Tools: []*core.Tool{{Name: "a"}}}
	first := DefaultRenderer{}.Render(in)
	second := DefaultRenderer{}.Render(in)
	if first != second {
		t.Error("rendering the same input twice must give identical output")
	}
}
