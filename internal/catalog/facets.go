package catalog

import (
	"strings"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// FacetOption is one selectable value of a facet.
type FacetOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FacetOptionSet maps a filter key to its distinct values in first-seen order.
type FacetOptionSet map[string][]FacetOption

// Has reports whether value is an option of key.
func (s FacetOptionSet) Has(key, value string) bool {
	for _, opt := range s[key] {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// FacetGroup is a facet ready for display: the key, its human label and its options.
type FacetGroup struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Options []FacetOption `json:"options"`
}

// ExtractFacets scans every resource of the page and collects, per key, the
// distinct values of present non-null attributes. Every key gets an entry even
// when no resource carries it.
func ExtractFacets(page []model.Resource, keys []string) FacetOptionSet {
	set := make(FacetOptionSet, len(keys))
	seen := make(map[string]map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = []FacetOption{}
		seen[key] = make(map[string]struct{})
	}

	for _, res := range page {
		for _, key := range keys {
			value, ok := res.Attribute(key)
			if !ok {
				continue
			}
			if _, dup := seen[key][value]; dup {
				continue
			}
			seen[key][value] = struct{}{}
			set[key] = append(set[key], FacetOption{Value: value, Label: value})
		}
	}
	return set
}

// Groups orders the set by keys and attaches display labels.
func (s FacetOptionSet) Groups(keys []string) []FacetGroup {
	groups := make([]FacetGroup, 0, len(keys))
	for _, key := range keys {
		opts := s[key]
		if opts == nil {
			opts = []FacetOption{}
		}
		groups = append(groups, FacetGroup{Key: key, Label: KeyLabel(key), Options: opts})
	}
	return groups
}

// KeyLabel returns the heading shown for a filter key.
func KeyLabel(key string) string {
	if key == "provider-type" {
		return "Resource type"
	}
	return strings.ReplaceAll(key, "-", " ")
}
