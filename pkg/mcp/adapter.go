// SPDX-License-Identifier: Apache-2.0

// Package mcp adapts Model Context Protocol tools into registry tools, so
// an agent can call out to MCP servers the same way it calls local handlers.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/tool"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// AdaptTool wraps an MCP tool definition and caller into a registry tool.
func AdaptTool(def mcp.Tool, caller ToolCaller) (core.Tool, error) {
	if def.Name == "" {
		return core.Tool{}, errors.New(errors.KindInvalidToolName, "mcp tool name is required", nil)
	}
	if caller == nil {
		return core.Tool{}, errors.New(errors.KindConfiguration, "tool caller is required", nil)
	}
	return core.Tool{
		Name:        def.Name,
		Description: def.Description,
		Schema:      adaptSchema(def.InputSchema),
		Handler: func(ctx context.Context, args map[string]any, _ *core.TurnState) (any, error) {
			result, err := caller.CallTool(ctx, def.Name, args)
			if err != nil {
				return nil, errors.New(errors.KindToolExecution,
					fmt.Sprintf("mcp tool %q failed", def.Name), err)
			}
			return resultToOutput(def.Name, result)
		},
	}, nil
}

// RegisterTools adapts every MCP tool definition and registers it. The
// first failure aborts and is returned.
func RegisterTools(registry *tool.Registry, caller ToolCaller, defs []mcp.Tool) error {
	for _, def := range defs {
		adapted, err := AdaptTool(def, caller)
		if err != nil {
			return err
		}
		if err := registry.Register(adapted); err != nil {
			return err
		}
	}
	return nil
}

// adaptSchema maps an MCP input schema onto the registry's validator.
// Non-object schemas and nested shapes pass through unvalidated.
func adaptSchema(schema mcp.ToolInputSchema) *core.Schema {
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	if len(schema.Properties) == 0 && len(schema.Required) == 0 {
		return nil
	}
	out := &core.Schema{
		Properties: make(map[string]core.Property, len(schema.Properties)),
		Required:   append([]string(nil), schema.Required...),
	}
	for name, raw := range schema.Properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		out.Properties[name] = core.Property{Type: typ, Description: desc}
	}
	return out
}

func resultToOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.Newf(errors.KindToolExecution, "mcp tool %q returned nil result", name)
	}
	if result.IsError {
		return nil, errors.Newf(errors.KindToolExecution,
			"mcp tool %q returned error: %s", name, extractTextContent(result.Content))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	if text := extractTextContent(result.Content); text != "" {
		return text, nil
	}
	return result, nil
}

func extractTextContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
