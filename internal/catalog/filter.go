package catalog

import (
	"sort"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// Selection is the active filter state: key -> set of accepted values.
// A key with no values imposes no constraint.
type Selection map[string]map[string]struct{}

// Values returns the selected values of key, sorted.
func (s Selection) Values(key string) []string {
	out := make([]string, 0, len(s[key]))
	for v := range s[key] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Map returns the non-empty selections as plain slices.
func (s Selection) Map() map[string][]string {
	out := make(map[string][]string, len(s))
	for key, values := range s {
		if len(values) == 0 {
			continue
		}
		out[key] = s.Values(key)
	}
	return out
}

// Empty reports whether no key constrains the result.
func (s Selection) Empty() bool {
	for _, values := range s {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// Matches is true when, for every key with a non-empty selection, the
// resource's attribute value is one of the selected values.
func (s Selection) Matches(res model.Resource) bool {
	for key, values := range s {
		if len(values) == 0 {
			continue
		}
		value, ok := res.Attribute(key)
		if !ok {
			return false
		}
		if _, hit := values[value]; !hit {
			return false
		}
	}
	return true
}

// FilterEngine holds the selection and evaluates it against a page.
type FilterEngine struct {
	selection Selection
}

func NewFilterEngine() *FilterEngine {
	return &FilterEngine{selection: make(Selection)}
}

// SetSelection replaces the selection for key. An empty values slice removes the constraint.
func (f *FilterEngine) SetSelection(key string, values []string) {
	if len(values) == 0 {
		delete(f.selection, key)
		return
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	f.selection[key] = set
}

// Clear drops every selection.
func (f *FilterEngine) Clear() {
	f.selection = make(Selection)
}

func (f *FilterEngine) Matches(res model.Resource) bool {
	return f.selection.Matches(res)
}

// Selection returns a copy of the current selection.
func (f *FilterEngine) Selection() Selection {
	out := make(Selection, len(f.selection))
	for key, values := range f.selection {
		cp := make(map[string]struct{}, len(values))
		for v := range values {
			cp[v] = struct{}{}
		}
		out[key] = cp
	}
	return out
}

// Apply returns the resources of page that match, keeping page order.
func (f *FilterEngine) Apply(page []model.Resource) []model.Resource {
	return ApplyFilters(page, f.selection)
}

// ApplyFilters is the pure form of FilterEngine.Apply.
func ApplyFilters(page []model.Resource, sel Selection) []model.Resource {
	out := make([]model.Resource, 0, len(page))
	for _, res := range page {
		if sel.Matches(res) {
			out = append(out, res)
		}
	}
	return out
}
