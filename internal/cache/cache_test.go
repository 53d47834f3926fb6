package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.([]model.Workspace), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUpstream) ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error) {
	args := m.Called(ctx, workspaceID, page, pageSize)
	return args.Get(0).(model.ResourcePage), args.Error(1)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection reset")
}
func (failingStore) Close() error { return nil }

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())

	_, ok, _ = s.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryStore_SetSweepsExpired(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, []byte(k), time.Second))
	}
	require.NoError(t, s.Set(ctx, "long", []byte("x"), time.Hour))
	assert.Equal(t, 4, s.Len())

	now = now.Add(2 * time.Second)
	require.NoError(t, s.Set(ctx, "d", []byte("d"), time.Second))
	assert.Equal(t, 2, s.Len())

	v, ok, err := s.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), v)
}

func TestClient_CachesSuccess(t *testing.T) {
	up := new(MockUpstream)
	ctx := context.Background()
	page := model.ResourcePage{
		Items:       []model.Resource{{ID: "r1", Attributes: map[string]interface{}{"provider": "hashicorp/aws", "index": json.Number("2")}}},
		CurrentPage: 1,
		TotalPages:  4,
		TotalCount:  80,
		PageSize:    20,
	}
	up.On("ListResources", ctx, "ws-1", 1, 20).Return(page, nil).Once()
	up.On("SearchWorkspaces", ctx, "prod").Return([]model.Workspace{{ID: "ws-1", Name: "production"}}, nil).Once()

	store := NewMemoryStore()
	c := NewClient(up, store, DefaultConfig())

	for i := 0; i < 3; i++ {
		got, err := c.ListResources(ctx, "ws-1", 1, 20)
		require.NoError(t, err)
		assert.Equal(t, page.TotalPages, got.TotalPages)
		v, _ := got.Items[0].Attribute("index")
		assert.Equal(t, "2", v)

		ws, err := c.SearchWorkspaces(ctx, "prod")
		require.NoError(t, err)
		assert.Equal(t, "production", ws[0].Name)
	}
	up.AssertExpectations(t)
	assert.Equal(t, 2, store.Len())
}

func TestClient_DoesNotCacheErrors(t *testing.T) {
	up := new(MockUpstream)
	ctx := context.Background()
	up.On("SearchWorkspaces", ctx, "x").Return(nil, model.ErrUnauthorized).Twice()

	store := NewMemoryStore()
	c := NewClient(up, store, DefaultConfig())
	for i := 0; i < 2; i++ {
		_, err := c.SearchWorkspaces(ctx, "x")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	}
	up.AssertExpectations(t)
	assert.Zero(t, store.Len())
}

func TestClient_StoreFailureFallsThrough(t *testing.T) {
	up := new(MockUpstream)
	ctx := context.Background()
	up.On("ListResources", ctx, "ws-1", 2, 10).Return(model.ResourcePage{CurrentPage: 2, TotalPages: 2}, nil).Twice()

	c := NewClient(up, failingStore{}, DefaultConfig())
	for i := 0; i < 2; i++ {
		got, err := c.ListResources(ctx, "ws-1", 2, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CurrentPage)
	}
	up.AssertExpectations(t)
}

func TestClient_KeysIncludePageAndSize(t *testing.T) {
	up := new(MockUpstream)
	ctx := context.Background()
	up.On("ListResources", ctx, "ws-1", 1, 10).Return(model.ResourcePage{CurrentPage: 1, TotalPages: 2}, nil).Once()
	up.On("ListResources", ctx, "ws-1", 2, 10).Return(model.ResourcePage{CurrentPage: 2, TotalPages: 2}, nil).Once()
	up.On("ListResources", ctx, "ws-1", 1, 20).Return(model.ResourcePage{CurrentPage: 1, TotalPages: 1}, nil).Once()

	c := NewClient(up, NewMemoryStore(), DefaultConfig())
	for _, call := range [][2]int{{1, 10}, {2, 10}, {1, 20}, {1, 10}} {
		_, err := c.ListResources(ctx, "ws-1", call[0], call[1])
		require.NoError(t, err)
	}
	up.AssertExpectations(t)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), Config{Backend: "memcached"})
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	var cfg Config
	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "hunter2", cfg.RedisPassword)
	assert.NoError(t, cfg.Validate())

	cfg.Backend = "disk"
	assert.Error(t, cfg.Validate())
}
