// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
)

// Schema is a minimal JSON-Schema-shaped argument validator for tools.
// It checks required fields and primitive types; tools needing richer
// validation do it inside the handler.
type Schema struct {
	Properties map[string]Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string            `json:"required,omitempty" yaml:"required,omitempty"`
}

// Property describes a single argument field.
type Property struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks args against the schema. A nil schema accepts anything.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	for _, name := range s.Required {
		value, ok := args[name]
		if !ok || value == nil {
			return fmt.Errorf("missing required argument %q", name)
		}
		if str, isStr := value.(string); isStr && str == "" {
			return fmt.Errorf("required argument %q is empty", name)
		}
	}
	for name, value := range args {
		prop, ok := s.Properties[name]
		if !ok || prop.Type == "" || value == nil {
			continue
		}
		if err := checkType(name, prop.Type, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name, want string, value any) error {
	ok := false
	switch want {
	case "string":
		_, ok = value.(string)
	case "number", "integer":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			ok = true
		}
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	default:
		// Unknown declared types pass through.
		ok = true
	}
	if !ok {
		return fmt.Errorf("argument %q must be of type %s, got %T", name, want, value)
	}
	return nil
}
