// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/telos/pkg/core"
)

// demoTools returns the built-in tools the CLI exposes to the oracle.
func demoTools() []core.Tool {
	return []core.Tool{
		{
			Name:        "add",
			Description: "Adds two numbers and returns the sum.",
			Schema: &core.Schema{
				Properties: map[string]core.Property{
					"a": {Type: "number", Description: "first operand"},
					"b": {Type: "number", Description: "second operand"},
				},
				Required: []string{"a", "b"},
			},
			Handler: func(_ context.Context, args map[string]any, _ *core.TurnState) (any, error) {
				a, okA := toFloat(args["a"])
				b, okB := toFloat(args["b"])
				if !okA || !okB {
					return nil, fmt.Errorf("operands must be numbers")
				}
				return a + b, nil
			},
		},
		{
			Name:        "now",
			Description: "Returns the current UTC time in RFC 3339 format.",
			Handler: func(_ context.Context, _ map[string]any, _ *core.TurnState) (any, error) {
				return time.Now().UTC().Format(time.RFC3339), nil
			},
		},
		{
			Name:        "word_count",
			Description: "Counts the words in the given text.",
			Schema: &core.Schema{
				Properties: map[string]core.Property{
					"text": {Type: "string", Description: "text to count"},
				},
				Required: []string{"text"},
			},
			Handler: func(_ context.Context, args map[string]any, _ *core.TurnState) (any, error) {
				text, _ := args["text"].(string)
				return len(strings.Fields(text)), nil
			},
		},
		{
			Name:        "remember",
			Description: "Stores a value in the shared turn state under a key.",
			Schema: &core.Schema{
				Properties: map[string]core.Property{
					"key":   {Type: "string", Description: "state key"},
					"value": {Type: "string", Description: "value to store"},
				},
				Required: []string{"key", "value"},
			},
			Handler: func(_ context.Context, args map[string]any, state *core.TurnState) (any, error) {
				key, _ := args["key"].(string)
				state.Set(key, args["value"])
				return "stored", nil
			},
		},
		{
			Name:        "recall",
			Description: "Reads a value stored earlier in the shared turn state.",
			DependsOn:   []string{"remember"},
			Schema: &core.Schema{
				Properties: map[string]core.Property{
					"key": {Type: "string", Description: "state key"},
				},
				Required: []string{"key"},
			},
			Handler: func(_ context.Context, args map[string]any, state *core.TurnState) (any, error) {
				key, _ := args["key"].(string)
				value, ok := state.Get(key)
				if !ok {
					return nil, fmt.Errorf("nothing stored under %q", key)
				}
				return value, nil
			},
		},
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
