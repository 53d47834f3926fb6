// Package services wires the catalog components into one process.
package services

import (
	"sync"

	"github.com/tfecatalog/tfe-catalog/internal/cache"
	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/config"
	"github.com/tfecatalog/tfe-catalog/internal/gateway"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/realtime"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
	"github.com/tfecatalog/tfe-catalog/internal/session"
)

type Options struct {
	// RunRealtime serves the websocket endpoint.
	RunRealtime bool
	// RunEvents publishes view transitions to the configured bus.
	RunEvents bool
	// RunMetrics serves Prometheus metrics on /metrics.
	RunMetrics bool
}

// AllServices enables every optional component.
func AllServices() Options {
	return Options{RunRealtime: true, RunEvents: true, RunMetrics: true}
}

type Manager struct {
	cfg  *config.Config
	opts Options

	client     catalog.Client
	cacheStore cache.Store
	publisher  pubsub.Publisher
	forwarder  *pubsub.Forwarder
	sessions   *session.Manager
	rtServer   *realtime.Server
	gateway    *gateway.Server

	wg sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{
		cfg:  cfg,
		opts: opts,
	}
}

// Sessions returns the session manager, nil before Init.
func (m *Manager) Sessions() *session.Manager {
	return m.sessions
}
