// Package mock serves a Terraform Enterprise compatible API over a fixed
// dataset, for local development and tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

// Dataset is the on-disk shape of the mock data: the workspace list and
// resources keyed by workspace id.
type Dataset struct {
	Workspaces []tfe.ResourceObject            `json:"workspaces"`
	Resources  map[string][]tfe.ResourceObject `json:"resources"`
}

// Store serves the dataset to the handler.
type Store interface {
	Workspaces(ctx context.Context) ([]tfe.ResourceObject, error)
	// Resources returns the resources of a workspace. ok is false for unknown workspaces.
	Resources(ctx context.Context, workspaceID string) (items []tfe.ResourceObject, ok bool, err error)
}

// FileStore keeps the dataset in memory.
type FileStore struct {
	workspaces []tfe.ResourceObject
	resources  map[string][]tfe.ResourceObject
}

// NewFileStore wraps an already loaded dataset.
func NewFileStore(ds Dataset) *FileStore {
	s := &FileStore{
		workspaces: ds.Workspaces,
		resources:  ds.Resources,
	}
	if s.resources == nil {
		s.resources = make(map[string][]tfe.ResourceObject)
	}
	return s
}

// ReadDataset decodes a dataset JSON file.
func ReadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// LoadFile reads a dataset from a JSON file.
func LoadFile(path string) (*FileStore, error) {
	ds, err := ReadDataset(path)
	if err != nil {
		return nil, err
	}
	return NewFileStore(ds), nil
}

func (s *FileStore) Workspaces(_ context.Context) ([]tfe.ResourceObject, error) {
	return s.workspaces, nil
}

func (s *FileStore) Resources(_ context.Context, workspaceID string) ([]tfe.ResourceObject, bool, error) {
	for _, ws := range s.workspaces {
		if ws.ID == workspaceID {
			return s.resources[workspaceID], true, nil
		}
	}
	items, ok := s.resources[workspaceID]
	return items, ok, nil
}

var sampleProviders = []struct {
	provider string
	types    []string
}{
	{"hashicorp/aws", []string{"aws_instance", "aws_s3_bucket", "aws_iam_role", "aws_security_group"}},
	{"hashicorp/azurerm", []string{"azurerm_resource_group", "azurerm_virtual_network", "azurerm_storage_account"}},
	{"hashicorp/google", []string{"google_compute_instance", "google_storage_bucket"}},
	{"hashicorp/random", []string{"random_id", "random_password"}},
}

var sampleModules = []string{"root", "module.network", "module.compute", "module.storage"}

// SampleDataset builds a deterministic dataset with the given number of
// workspaces, workspace i holding perWorkspace*(i+1) resources.
func SampleDataset(workspaces, perWorkspace int) Dataset {
	environments := []string{"production", "staging", "development"}
	ds := Dataset{Resources: make(map[string][]tfe.ResourceObject, workspaces)}

	for i := 0; i < workspaces; i++ {
		env := environments[i%len(environments)]
		wsID := fmt.Sprintf("ws-%04d", i+1)
		count := perWorkspace * (i + 1)
		created := fmt.Sprintf("2024-%02d-01T09:00:00Z", i%12+1)

		ds.Workspaces = append(ds.Workspaces, tfe.ResourceObject{
			ID:   wsID,
			Type: "workspaces",
			Attributes: map[string]interface{}{
				"name":              fmt.Sprintf("%s-app-%d", env, i+1),
				"description":       nil,
				"execution-mode":    "remote",
				"terraform-version": "1.7.5",
				"resource-count":    count,
				"created-at":        created,
				"updated-at":        created,
				"locked":            false,
				"environment":       env,
			},
		})

		items := make([]tfe.ResourceObject, 0, count)
		for j := 0; j < count; j++ {
			p := sampleProviders[(i+j)%len(sampleProviders)]
			typ := p.types[j%len(p.types)]
			module := sampleModules[j%len(sampleModules)]
			name := fmt.Sprintf("r%d", j)
			address := typ + "." + name
			if module != "root" {
				address = module + "." + address
			}
			var nameIndex interface{}
			if j%5 == 0 {
				nameIndex = "0"
			}
			items = append(items, tfe.ResourceObject{
				ID:   fmt.Sprintf("wsr-%04d-%04d", i+1, j+1),
				Type: "resources",
				Attributes: map[string]interface{}{
					"address":                      address,
					"name":                         name,
					"created-at":                   created,
					"updated-at":                   created,
					"module":                       module,
					"provider":                     p.provider,
					"provider-type":                typ,
					"modified-by-state-version-id": fmt.Sprintf("sv-%04d", i+1),
					"name-index":                   nameIndex,
				},
			})
		}
		ds.Resources[wsID] = items
	}

	sort.Slice(ds.Workspaces, func(a, b int) bool { return ds.Workspaces[a].ID < ds.Workspaces[b].ID })
	return ds
}
