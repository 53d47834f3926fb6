package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/config"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/realtime"
	"github.com/tfecatalog/tfe-catalog/internal/session"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

type stubClient struct{}

func (stubClient) SearchWorkspaces(context.Context, string) ([]model.Workspace, error) {
	return nil, nil
}

func (stubClient) ListResources(_ context.Context, _ string, page, _ int) (model.ResourcePage, error) {
	return model.ResourcePage{CurrentPage: page, TotalPages: 1}, nil
}

func TestNewServer_RegisterRoutes(t *testing.T) {
	sessions := session.NewManager(session.DefaultConfig(), catalog.DefaultConfig(), stubClient{})
	defer sessions.Close()
	cfg := config.DefaultGatewayConfig()
	rt := realtime.NewServer(sessions, cfg.Realtime)

	srv, err := NewServer(sessions, stubClient{}, catalog.DefaultConfig(), cfg, rt)
	require.NoError(t, err)
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// Unknown session on the websocket route is rejected before the upgrade.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing/ws", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewServer_WithoutRealtime(t *testing.T) {
	sessions := session.NewManager(session.DefaultConfig(), catalog.DefaultConfig(), stubClient{})
	defer sessions.Close()

	srv, err := NewServer(sessions, stubClient{}, catalog.DefaultConfig(), config.DefaultGatewayConfig(), nil)
	require.NoError(t, err)
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing/ws", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewServer_NilClient(t *testing.T) {
	sessions := session.NewManager(session.DefaultConfig(), catalog.DefaultConfig(), stubClient{})
	defer sessions.Close()
	_, err := NewServer(sessions, nil, catalog.DefaultConfig(), config.DefaultGatewayConfig(), nil)
	assert.Error(t, err)
}

func TestNewServer_SessionRateLimit(t *testing.T) {
	sessions := session.NewManager(session.DefaultConfig(), catalog.DefaultConfig(), stubClient{})
	defer sessions.Close()
	cfg := config.DefaultGatewayConfig()
	cfg.SessionRateLimit.Requests = 2

	srv, err := NewServer(sessions, stubClient{}, catalog.DefaultConfig(), cfg, nil)
	require.NoError(t, err)
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}
