package server

import (
	"context"
	"net/http"
)

// Service is the HTTP front shared by the REST gateway, the websocket
// endpoint and /metrics.
type Service interface {
	// Start serves until ctx is canceled. It fails fast when the port cannot be bound.
	Start(ctx context.Context) error

	// Stop drains active connections until ctx expires.
	Stop(ctx context.Context) error

	// RegisterHTTPHandler adds a route. Call it before Start.
	RegisterHTTPHandler(pattern string, handler http.Handler)

	// HTTPMux exposes the router for components that register many routes. Use it before Start.
	HTTPMux() *http.ServeMux
}
