package services

import (
	"context"
	"log/slog"

	"github.com/tfecatalog/tfe-catalog/internal/server"
)

// Start launches the HTTP server, the realtime hub and the session janitor.
// They run until bgCtx is canceled.
func (m *Manager) Start(bgCtx context.Context) {
	if srv := server.Default(); srv != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := srv.Start(bgCtx); err != nil {
				slog.Error("HTTP server stopped with error", "error", err)
			}
		}()
	}

	if m.rtServer != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.rtServer.Run(bgCtx)
		}()
	}

	if m.sessions != nil {
		m.sessions.Start(bgCtx)
	}
}
