// SPDX-License-Identifier: Apache-2.0

// Package prompt renders the oracle prompt from the run's current state.
// Rendering is a pure function and never fails the run: missing optional
// fields simply leave their section out.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/jllopis/telos/pkg/core"
)

// Input is everything the renderer may draw on.
type Input struct {
	SystemPrompt string
	UserPrompt   string
	Context      map[string]any
	History      []core.ExecutionResult
	LastError    string
	RetryEnabled bool
	Tools        []*core.Tool
}

// Renderer produces the prompt text for one iteration.
type Renderer interface {
	Render(in Input) string
}

// DefaultRenderer formats a plain-text prompt instructing the oracle to
// reply with a JSON batch of tool calls.
type DefaultRenderer struct{}

var promptTemplate = template.Must(template.New("prompt").Parse(`{{if .SystemPrompt}}{{.SystemPrompt}}

{{end}}You can call the following tools:
{{.ToolBlock}}
Respond with a JSON array of tool calls, for example:
[{"name": "tool_name", "arguments": {"key": "value"}}]
Call the "final" tool with your answer when you are done.
{{if .ContextBlock}}
Context:
{{.ContextBlock}}{{end}}{{if .HistoryBlock}}
Previous tool results:
{{.HistoryBlock}}{{end}}{{if .LastError}}
The previous iteration failed: {{.LastError}}{{if .RetryEnabled}}
Adjust your approach and try again.{{end}}{{end}}

Task: {{.UserPrompt}}
`))

// Render implements Renderer.
func (DefaultRenderer) Render(in Input) string {
	data := struct {
		SystemPrompt string
		UserPrompt   string
		ToolBlock    string
		ContextBlock string
		HistoryBlock string
		LastError    string
		RetryEnabled bool
	}{
		SystemPrompt: in.SystemPrompt,
		UserPrompt:   in.UserPrompt,
		ToolBlock:    toolBlock(in.Tools),
		ContextBlock: contextBlock(in.Context),
		HistoryBlock: historyBlock(in.History),
		LastError:    in.LastError,
		RetryEnabled: in.RetryEnabled,
	}

	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, data); err != nil {
		// Degrade to a minimal prompt rather than failing the run.
		return fmt.Sprintf("%s\n\nTask: %s\n", in.SystemPrompt, in.UserPrompt)
	}
	return sb.String()
}

func toolBlock(tools []*core.Tool) string {
	var sb strings.Builder
	for _, t := range tools {
		sb.WriteString("- ")
		sb.WriteString(t.Name)
		if t.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(t.Description)
		}
		if t.Schema != nil && len(t.Schema.Properties) > 0 {
			if schemaJSON, err := json.Marshal(t.Schema); err == nil {
				sb.WriteString(" ")
				sb.Write(schemaJSON)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func contextBlock(context map[string]any) string {
	if len(context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", key, context[key])
	}
	return sb.String()
}

func historyBlock(history []core.ExecutionResult) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, res := range history {
		if res.Success {
			fmt.Fprintf(&sb, "- %s: ok: %v\n", res.ToolName, res.Output)
		} else {
			fmt.Fprintf(&sb, "- %s: failed: %s\n", res.ToolName, res.Error)
		}
	}
	return sb.String()
}
