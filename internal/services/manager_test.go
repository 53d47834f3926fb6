package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfecatalog/tfe-catalog/internal/cache"
	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/config"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub/memory"
	"github.com/tfecatalog/tfe-catalog/internal/server"
	"github.com/tfecatalog/tfe-catalog/internal/tfe"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

type stubClient struct{}

func (stubClient) SearchWorkspaces(_ context.Context, query string) ([]model.Workspace, error) {
	return []model.Workspace{{ID: "ws-1", Name: "production-" + query}}, nil
}

func (stubClient) ListResources(_ context.Context, _ string, page, _ int) (model.ResourcePage, error) {
	return model.ResourcePage{CurrentPage: page, TotalPages: 1}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.HTTPPort = 0
	return cfg
}

// withFactories swaps the package factories and the default server for the
// duration of a test.
func withFactories(t *testing.T) {
	t.Helper()
	origUpstream, origCache, origNats := upstreamFactory, cacheOpen, natsConnect
	origServer := server.Default()
	upstreamFactory = func(tfe.Config) catalog.Client { return stubClient{} }
	t.Cleanup(func() {
		upstreamFactory, cacheOpen, natsConnect = origUpstream, origCache, origNats
		server.SetDefault(origServer)
	})
}

func waitForAddr(t *testing.T) string {
	t.Helper()
	srv, ok := server.Default().(interface{ Addr() string })
	require.True(t, ok)
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	return "http://" + srv.Addr()
}

func TestManager_EndToEnd(t *testing.T) {
	withFactories(t)
	mgr := NewManager(testConfig(), AllServices())
	require.NoError(t, mgr.Init(context.Background()))

	broker, ok := mgr.publisher.(*memory.Broker)
	require.True(t, ok)
	events, unsubscribe, err := broker.Subscribe(context.Background(), "tfecatalog.views.>", 64)
	require.NoError(t, err)
	defer unsubscribe()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	mgr.Start(bgCtx)
	base := waitForAddr(t)

	resp, err := http.Post(base+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, 1, mgr.Sessions().Len())

	resp, err = http.Post(base+"/api/v1/sessions/"+created.ID+"/search", "application/json",
		strings.NewReader(`{"query":"eu","immediate":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var kinds []catalog.EventKind
	require.Eventually(t, func() bool {
		for {
			select {
			case msg := <-events:
				assert.True(t, strings.HasPrefix(msg.Subject, "tfecatalog.views."+created.ID+"."))
				var n pubsub.Notification
				if json.Unmarshal(msg.Data, &n) == nil {
					kinds = append(kinds, n.Kind)
				}
			default:
				for _, k := range kinds {
					if k == catalog.EventSearchResults {
						return true
					}
				}
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tfecatalog_sessions_active")

	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mgr.Shutdown(shutdownCtx)

	assert.Equal(t, 0, mgr.Sessions().Len())
	_, err = http.Get(base + "/health")
	assert.Error(t, err)
}

func TestManager_Init_CacheEnabled(t *testing.T) {
	withFactories(t)
	var opened cache.Config
	cacheOpen = func(_ context.Context, cfg cache.Config) (cache.Store, error) {
		opened = cfg
		return cache.NewMemoryStore(), nil
	}

	cfg := testConfig()
	cfg.Cache.Enabled = true
	mgr := NewManager(cfg, Options{})
	require.NoError(t, mgr.Init(context.Background()))
	defer mgr.Shutdown(context.Background())

	assert.True(t, opened.Enabled)
	assert.IsType(t, &cache.Client{}, mgr.client)
	assert.NotNil(t, mgr.cacheStore)
	assert.Nil(t, mgr.publisher)
	assert.Nil(t, mgr.rtServer)
}

func TestManager_Init_CacheError(t *testing.T) {
	withFactories(t)
	cacheOpen = func(context.Context, cache.Config) (cache.Store, error) {
		return nil, errors.New("redis unreachable")
	}

	cfg := testConfig()
	cfg.Cache.Enabled = true
	err := NewManager(cfg, Options{}).Init(context.Background())
	assert.ErrorContains(t, err, "redis unreachable")
}

func TestManager_Init_EventBackends(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		withFactories(t)
		cfg := testConfig()
		cfg.PubSub.Backend = "none"
		mgr := NewManager(cfg, Options{RunEvents: true})
		require.NoError(t, mgr.Init(context.Background()))
		defer mgr.Shutdown(context.Background())
		assert.Nil(t, mgr.publisher)
		assert.Nil(t, mgr.forwarder)
	})

	t.Run("nats", func(t *testing.T) {
		withFactories(t)
		broker := memory.NewBroker(pubsub.PublisherOptions{})
		var dialed string
		natsConnect = func(_ context.Context, url string, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
			dialed = url
			assert.NotNil(t, opts.OnPublish)
			return broker, nil
		}
		cfg := testConfig()
		cfg.PubSub.Backend = "nats"
		mgr := NewManager(cfg, Options{RunEvents: true})
		require.NoError(t, mgr.Init(context.Background()))
		defer mgr.Shutdown(context.Background())
		assert.Equal(t, "nats://localhost:4222", dialed)
		assert.Same(t, broker, mgr.publisher)
		assert.NotNil(t, mgr.forwarder)
	})

	t.Run("nats unreachable", func(t *testing.T) {
		withFactories(t)
		natsConnect = func(context.Context, string, pubsub.PublisherOptions) (pubsub.Publisher, error) {
			return nil, errors.New("connection refused")
		}
		cfg := testConfig()
		cfg.PubSub.Backend = "nats"
		err := NewManager(cfg, Options{RunEvents: true}).Init(context.Background())
		assert.ErrorContains(t, err, "failed to connect to NATS")
	})
}

func TestManager_ShutdownWithoutStart(t *testing.T) {
	withFactories(t)
	mgr := NewManager(testConfig(), AllServices())
	require.NoError(t, mgr.Init(context.Background()))
	assert.NotPanics(t, func() { mgr.Shutdown(context.Background()) })
}
