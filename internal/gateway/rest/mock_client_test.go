package rest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Workspace), args.Error(1)
}

func (m *MockClient) ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error) {
	args := m.Called(ctx, workspaceID, page, pageSize)
	return args.Get(0).(model.ResourcePage), args.Error(1)
}

func resourcePage(page, totalPages int, providers ...string) model.ResourcePage {
	items := make([]model.Resource, 0, len(providers))
	for i, p := range providers {
		items = append(items, model.Resource{
			ID:         "wsr-" + p + "-" + string(rune('a'+i)),
			Attributes: map[string]interface{}{"provider": p, "name": "res-" + string(rune('a'+i))},
		})
	}
	return model.ResourcePage{Items: items, CurrentPage: page, TotalPages: totalPages, TotalCount: totalPages * 20}
}
