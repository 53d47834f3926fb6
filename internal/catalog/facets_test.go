package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

func TestExtractFacets(t *testing.T) {
	page := []model.Resource{
		res("r1", map[string]interface{}{"provider": "hashicorp/aws", "provider-type": "aws_instance"}),
		res("r2", map[string]interface{}{"provider": "hashicorp/azurerm", "provider-type": "azurerm_vm", "module": nil}),
		res("r3", map[string]interface{}{"provider": "hashicorp/aws", "provider-type": "aws_s3_bucket"}),
	}

	set := ExtractFacets(page, []string{"provider", "provider-type", "module"})

	assert.Equal(t, []FacetOption{
		{Value: "hashicorp/aws", Label: "hashicorp/aws"},
		{Value: "hashicorp/azurerm", Label: "hashicorp/azurerm"},
	}, set["provider"])
	assert.Len(t, set["provider-type"], 3)
	assert.Equal(t, "aws_instance", set["provider-type"][0].Value)
	// null attributes contribute nothing but the key is still present
	assert.NotNil(t, set["module"])
	assert.Empty(t, set["module"])
}

func TestExtractFacets_EmptyPage(t *testing.T) {
	set := ExtractFacets(nil, DefaultFilterKeys)
	assert.Len(t, set, len(DefaultFilterKeys))
	for _, key := range DefaultFilterKeys {
		assert.NotNil(t, set[key], key)
		assert.Empty(t, set[key], key)
	}
}

func TestExtractFacets_NonStringValues(t *testing.T) {
	page := []model.Resource{
		res("r1", map[string]interface{}{"count": float64(3)}),
		res("r2", map[string]interface{}{"count": float64(3)}),
		res("r3", map[string]interface{}{"count": true}),
	}
	set := ExtractFacets(page, []string{"count"})
	assert.Equal(t, []FacetOption{{Value: "3", Label: "3"}, {Value: "true", Label: "true"}}, set["count"])
}

func TestExtractFacets_NumbersMergeAcrossSpellings(t *testing.T) {
	page := []model.Resource{
		res("r1", map[string]interface{}{"count": json.Number("1")}),
		res("r2", map[string]interface{}{"count": json.Number("1.0")}),
		res("r3", map[string]interface{}{"count": float64(1)}),
		res("r4", map[string]interface{}{"count": json.Number("1e3")}),
		res("r5", map[string]interface{}{"count": json.Number("1000")}),
	}
	set := ExtractFacets(page, []string{"count"})
	assert.Equal(t, []FacetOption{{Value: "1", Label: "1"}, {Value: "1000", Label: "1000"}}, set["count"])
	assert.Len(t, ApplyFilters(page, Selection{"count": {"1": {}}}), 3)
}

func TestExtractFacets_SoundAndComplete(t *testing.T) {
	page := []model.Resource{
		res("r1", map[string]interface{}{"name": "a", "module": "m1"}),
		res("r2", map[string]interface{}{"name": "b"}),
		res("r3", map[string]interface{}{"name": "a", "module": "m2"}),
		res("r4", map[string]interface{}{}),
	}
	keys := []string{"name", "module"}
	set := ExtractFacets(page, keys)

	for _, key := range keys {
		present := map[string]bool{}
		for _, r := range page {
			if v, ok := r.Attribute(key); ok {
				present[v] = true
			}
		}
		seen := map[string]int{}
		for _, opt := range set[key] {
			assert.True(t, present[opt.Value], "option %s=%s absent from page", key, opt.Value)
			seen[opt.Value]++
		}
		for v := range present {
			assert.Equal(t, 1, seen[v], "value %s=%s", key, v)
		}
	}
}

func TestFacetOptionSet_Has(t *testing.T) {
	set := FacetOptionSet{"provider": {{Value: "hashicorp/aws", Label: "hashicorp/aws"}}}
	assert.True(t, set.Has("provider", "hashicorp/aws"))
	assert.False(t, set.Has("provider", "hashicorp/google"))
	assert.False(t, set.Has("module", "hashicorp/aws"))
}

func TestFacetOptionSet_Groups(t *testing.T) {
	set := ExtractFacets([]model.Resource{
		res("r1", map[string]interface{}{"provider-type": "aws_instance"}),
	}, []string{"provider-type", "created-at"})

	groups := set.Groups([]string{"provider-type", "created-at"})
	assert.Equal(t, []FacetGroup{
		{Key: "provider-type", Label: "Resource type", Options: []FacetOption{{Value: "aws_instance", Label: "aws_instance"}}},
		{Key: "created-at", Label: "created at", Options: []FacetOption{}},
	}, groups)
}

func TestKeyLabel(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"provider-type", "Resource type"},
		{"updated-at", "updated at"},
		{"name", "name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyLabel(tt.key))
	}
}
