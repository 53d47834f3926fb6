package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tfecatalog/tfe-catalog/internal/cache"
	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/gateway"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/realtime"
	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub/memory"
	natspub "github.com/tfecatalog/tfe-catalog/internal/pubsub/nats"
	"github.com/tfecatalog/tfe-catalog/internal/server"
	"github.com/tfecatalog/tfe-catalog/internal/session"
	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

// Factories replaced in tests.
var cacheOpen = cache.Open

var natsConnect = func(ctx context.Context, url string, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	return natspub.Connect(ctx, url, opts)
}

var upstreamFactory = func(cfg tfe.Config) catalog.Client {
	return tfe.New(cfg)
}

func (m *Manager) Init(ctx context.Context) error {
	// Initialize Unified Server Service
	server.InitDefault(m.cfg.Server, nil)

	if err := m.initClient(ctx); err != nil {
		return err
	}
	if m.opts.RunEvents {
		if err := m.initEvents(ctx); err != nil {
			return err
		}
	}
	m.initSessions()
	if err := m.initGateway(); err != nil {
		return err
	}
	if m.opts.RunMetrics {
		server.Default().RegisterHTTPHandler("GET /metrics", promhttp.Handler())
		slog.Info("Registered metrics endpoint", "path", "/metrics")
	}
	return nil
}

// initClient builds the TFE client, behind the response cache when enabled.
func (m *Manager) initClient(ctx context.Context) error {
	m.client = upstreamFactory(m.cfg.TFE)
	slog.Info("Using TFE API", "url", m.cfg.TFE.BaseURL, "organization", m.cfg.TFE.Organization)

	if !m.cfg.Cache.Enabled {
		return nil
	}
	store, err := cacheOpen(ctx, m.cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open response cache: %w", err)
	}
	m.cacheStore = store
	m.client = cache.NewClient(m.client, store, m.cfg.Cache)
	slog.Info("Response cache enabled", "backend", m.cfg.Cache.Backend, "ttl", m.cfg.Cache.TTL)
	return nil
}

func (m *Manager) initEvents(ctx context.Context) error {
	opts := m.cfg.PubSub.Options()
	opts.OnPublish = metrics.RecordPublish

	switch m.cfg.PubSub.Backend {
	case "none":
		return nil
	case "nats":
		pub, err := natsConnect(ctx, m.cfg.PubSub.NATSURL, opts)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		m.publisher = pub
	default:
		m.publisher = memory.NewBroker(opts)
	}

	m.forwarder = pubsub.NewForwarder(m.publisher, m.cfg.PubSub.BufferSize)
	slog.Info("Publishing view events", "backend", m.cfg.PubSub.Backend, "prefix", m.cfg.PubSub.SubjectPrefix)
	return nil
}

func (m *Manager) initSessions() {
	var opts []session.Option
	if m.forwarder != nil {
		opts = append(opts, session.WithEventListener(m.forwarder.Listener))
	}
	if m.opts.RunRealtime {
		// The realtime server needs the session manager, so its listener
		// is resolved when a session is created.
		opts = append(opts, session.WithEventListener(func(id string) catalog.Listener {
			return m.rtServer.Listener(id)
		}))
	}
	m.sessions = session.NewManager(m.cfg.Session, m.cfg.Catalog, m.client, opts...)

	if m.opts.RunRealtime {
		m.rtServer = realtime.NewServer(m.sessions, m.cfg.Gateway.Realtime)
	}
}

func (m *Manager) initGateway() error {
	gw, err := gateway.NewServer(m.sessions, m.client, m.cfg.Catalog, m.cfg.Gateway, m.rtServer)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	m.gateway = gw

	// Register API routes to the unified server
	gw.RegisterRoutes(server.Default().HTTPMux())
	slog.Info("Registered API routes", "realtime", m.rtServer != nil)
	return nil
}
