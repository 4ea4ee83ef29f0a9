// SPDX-License-Identifier: Apache-2.0

// Package parser turns raw oracle completions into typed call proposals.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

// rawCall is the wire shape the oracle is instructed to emit.
type rawCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ParseCalls extracts the proposed tool calls from completion text. It
// accepts a bare JSON array, an object with a "tool_calls" field, and
// either form wrapped in a fenced code block. Malformed output yields an
// ORACLE_RESPONSE_ERROR.
func ParseCalls(text string) ([]core.ProposedCall, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, errors.Newf(errors.KindOracleResponse, "no tool-call JSON found in oracle output")
	}

	raw, err := decodeCalls(payload)
	if err != nil {
		return nil, errors.New(errors.KindOracleResponse, "malformed tool-call JSON", err)
	}
	if len(raw) == 0 {
		return nil, errors.Newf(errors.KindOracleResponse, "oracle proposed no tool calls")
	}

	calls := make([]core.ProposedCall, 0, len(raw))
	for _, rc := range raw {
		if strings.TrimSpace(rc.Name) == "" {
			return nil, errors.Newf(errors.KindOracleResponse, "tool call with empty name")
		}
		args := rc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, core.ProposedCall{
			ID:        core.NewCallID(),
			Name:      rc.Name,
			Arguments: args,
		})
	}
	return calls, nil
}

func decodeCalls(payload string) ([]rawCall, error) {
	var list []rawCall
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		ToolCalls []rawCall `json:"tool_calls"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		return nil, err
	}
	return wrapper.ToolCalls, nil
}

// extractJSON locates the JSON payload inside the completion, stripping
// markdown fences and any prose around the first balanced array or object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return ""
	}
	open := text[start]
	var closer byte = ']'
	if open == '{' {
		closer = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
