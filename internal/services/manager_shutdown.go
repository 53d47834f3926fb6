package services

import (
	"context"
	"log/slog"

	"github.com/tfecatalog/tfe-catalog/internal/server"
)

// Shutdown stops accepting requests, closes every session and releases the
// cache and event bus. Callers cancel the Start context first.
func (m *Manager) Shutdown(ctx context.Context) {
	if srv := server.Default(); srv != nil {
		slog.Info("Stopping HTTP server...")
		if err := srv.Stop(ctx); err != nil {
			slog.Error("Error shutting down HTTP server", "error", err)
		}
	}

	// Closing the views also closes their websocket connections.
	if m.sessions != nil {
		slog.Info("Closing sessions...", "count", m.sessions.Len())
		m.sessions.Close()
	}
	if m.gateway != nil {
		m.gateway.Close()
	}

	slog.Info("Waiting for background tasks to finish...")
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("Background tasks finished.")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for background tasks.")
	}

	// Drain queued events before the bus goes away.
	if m.forwarder != nil {
		if err := m.forwarder.Close(); err != nil {
			slog.Error("Error closing event forwarder", "error", err)
		}
	}
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			slog.Error("Error closing event publisher", "error", err)
		}
	}
	if m.cacheStore != nil {
		if err := m.cacheStore.Close(); err != nil {
			slog.Error("Error closing response cache", "error", err)
		}
	}
}
