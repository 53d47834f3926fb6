package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Resource is one managed resource inside a workspace's state.
// Attribute values are scalars: string, json.Number or float64, bool or nil.
type Resource struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Attribute returns the attribute for key in its display form. The second
// result is false when the key is absent or null.
func (r Resource) Attribute(key string) (string, bool) {
	v, ok := r.Attributes[key]
	if !ok {
		return "", false
	}
	return FormatValue(v)
}

// ResourcePage is a single page of resources plus the pagination meta the API reported.
type ResourcePage struct {
	Items       []Resource `json:"items"`
	CurrentPage int        `json:"current_page"`
	TotalPages  int        `json:"total_pages"`
	TotalCount  int        `json:"total_count"`
	PageSize    int        `json:"page_size"`
}

// FormatValue renders a scalar attribute value as a string. Numbers use the
// shortest representation ("3", "1.5"), booleans render as "true"/"false".
// nil reports false.
func FormatValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return formatNumber(val), true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return fmt.Sprint(val), true
	}
}

// formatNumber renders a decoded JSON number the same way as a float64, so
// that 1, 1.0 and 1e0 are one value. Integers too large for a float64 keep
// their digits.
func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}
