// SPDX-License-Identifier: Apache-2.0

package core

import "testing"

func TestSchemaValidate(t *testing.T) {
	schema := &Schema{
		Properties: map[string]Property{
			"filename": {Type: "string"},
			"limit":    {Type: "number"},
			"follow":   {Type: "boolean"},
		},
		Required: []string{"filename"},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"filename": "a.txt", "limit": float64(10)}, false},
		{"missing required", map[string]any{"limit": float64(1)}, true},
		{"empty required string", map[string]any{"filename": ""}, true},
		{"wrong type", map[string]any{"filename": "a.txt", "limit": "ten"}, true},
		{"bool ok", map[string]any{"filename": "a.txt", "follow": true}, false},
		{"extra undeclared field passes", map[string]any{"filename": "a.txt", "other": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNilSchemaAcceptsAnything(t *testing.T) {
	var schema *Schema
	if err := schema.Validate(map[string]any{"anything": 1}); err != nil {
		t.Errorf("nil schema should accept any args, got %v", err)
	}
}
