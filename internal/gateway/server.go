package gateway

import (
	"net/http"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/config"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/realtime"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/rest"
	"github.com/tfecatalog/tfe-catalog/internal/server/ratelimit"
)

// Server is a route registrar for the API layer.
// It registers REST and realtime routes to a given ServeMux.
type Server struct {
	rest     *rest.Handler
	realtime *realtime.Server
	limiter  ratelimit.Stoppable
}

// NewServer creates a new API Server (route registrar). rt may be nil to
// serve REST only.
func NewServer(sessions rest.SessionStore, client catalog.Client, catalogCfg catalog.Config, cfg config.GatewayConfig, rt *realtime.Server) (*Server, error) {
	opts := []rest.HandlerOption{rest.WithRequestTimeout(cfg.RequestTimeout)}

	var limiter ratelimit.Stoppable
	if cfg.SessionRateLimit.Enabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.SessionRateLimit)
		opts = append(opts, rest.WithSessionRateLimiter(limiter, cfg.SessionRateLimit.Window))
	}

	restHandler, err := rest.NewHandler(sessions, client, catalogCfg, opts...)
	if err != nil {
		if limiter != nil {
			limiter.Stop()
		}
		return nil, err
	}
	return &Server{
		rest:     restHandler,
		realtime: rt,
		limiter:  limiter,
	}, nil
}

// RegisterRoutes registers all API routes to the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Register REST routes
	s.rest.RegisterRoutes(mux)

	// Register Realtime routes
	if s.realtime != nil {
		mux.HandleFunc("GET /api/v1/sessions/{id}/ws", s.realtime.HandleWS)
	}
}

// Close stops background work owned by the registrar.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
