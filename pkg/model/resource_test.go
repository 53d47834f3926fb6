package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
		ok    bool
	}{
		{"nil", nil, "", false},
		{"string", "hashicorp/aws", "hashicorp/aws", true},
		{"empty string", "", "", true},
		{"json number", json.Number("42"), "42", true},
		{"json number with fraction zero", json.Number("1.0"), "1", true},
		{"json number exponent", json.Number("1e3"), "1000", true},
		{"json number fraction", json.Number("2.50"), "2.5", true},
		{"json number large integer", json.Number("9007199254740993"), "9007199254740993", true},
		{"integral float", float64(3), "3", true},
		{"fractional float", 1.5, "1.5", true},
		{"bool", true, "true", true},
		{"int", 7, "7", true},
		{"int64", int64(-2), "-2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatValue(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResource_Attribute(t *testing.T) {
	r := Resource{ID: "res-1", Attributes: map[string]interface{}{
		"provider":   "hashicorp/aws",
		"name-index": nil,
		"count":      json.Number("2"),
	}}

	v, ok := r.Attribute("provider")
	assert.True(t, ok)
	assert.Equal(t, "hashicorp/aws", v)

	_, ok = r.Attribute("name-index")
	assert.False(t, ok)

	_, ok = r.Attribute("missing")
	assert.False(t, ok)

	v, ok = r.Attribute("count")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestWorkspaceFromAttributes(t *testing.T) {
	ws := WorkspaceFromAttributes("ws-1", map[string]interface{}{"name": "production"})
	assert.Equal(t, "production", ws.Name)

	ws = WorkspaceFromAttributes("ws-2", map[string]interface{}{})
	assert.Equal(t, "ws-2", ws.Name)
}
