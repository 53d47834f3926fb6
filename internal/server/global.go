package server

import (
	"log/slog"
	"net/http"
	"sync"
)

var (
	defaultMu      sync.RWMutex
	defaultService Service
)

// InitDefault creates the process-wide server. The service manager calls it
// once before any component registers routes.
func InitDefault(cfg Config, logger *slog.Logger) {
	SetDefault(New(cfg, logger))
}

// Default returns the process-wide server, nil before InitDefault.
func Default() Service {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultService
}

// SetDefault replaces the process-wide server. Tests use it to install fakes.
func SetDefault(s Service) {
	defaultMu.Lock()
	defaultService = s
	defaultMu.Unlock()
}

// RegisterHTTP adds a route to the default server. It is a no-op before InitDefault.
func RegisterHTTP(pattern string, handler http.Handler) {
	if s := Default(); s != nil {
		s.RegisterHTTPHandler(pattern, handler)
	}
}

// HandleFunc is RegisterHTTP for plain functions.
func HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	RegisterHTTP(pattern, http.HandlerFunc(handler))
}
