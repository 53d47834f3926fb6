package catalog

import (
	"context"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// WorkspaceSearcher looks up workspaces whose name partially matches query.
// An empty query lists workspaces unfiltered.
type WorkspaceSearcher interface {
	SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error)
}

// ResourceLister returns one page of a workspace's resources. Pages are 1-indexed.
type ResourceLister interface {
	ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error)
}

// Client is the remote API the view-model consumes.
type Client interface {
	WorkspaceSearcher
	ResourceLister
}
