// tfe-mock serves a small TFE-compatible API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/config"
	"github.com/tfecatalog/tfe-catalog/internal/logging"
	"github.com/tfecatalog/tfe-catalog/internal/mock"
)

func main() {
	configDir := flag.String("config", config.DefaultConfigDir, "Directory holding config.yml and config.local.yml")
	seed := flag.Bool("seed", false, "With the mongo backend, load the file or sample dataset into MongoDB first")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := openStore(ctx, cfg.Mock, *seed)
	cancel()
	if err != nil {
		slog.Error("Failed to open mock dataset", "backend", cfg.Mock.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	mux := http.NewServeMux()
	mock.NewHandler(store, cfg.Mock).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Mock.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Mock TFE API listening", "addr", srv.Addr, "backend", cfg.Mock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Mock server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down mock server", "error", err)
	}
}

// openStore builds the dataset backend named by cfg.Backend.
func openStore(ctx context.Context, cfg mock.Config, seed bool) (mock.Store, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "file":
		store, err := mock.LoadFile(cfg.DataFile)
		return store, noop, err
	case "mongo":
		store, err := mock.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		closeStore := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}
		if seed {
			ds, err := seedDataset(cfg)
			if err == nil {
				err = store.Seed(ctx, ds)
			}
			if err != nil {
				closeStore()
				return nil, noop, fmt.Errorf("failed to seed mongo: %w", err)
			}
			slog.Info("Seeded mongo dataset", "workspaces", len(ds.Workspaces))
		}
		return store, closeStore, nil
	default:
		return mock.NewFileStore(mock.SampleDataset(cfg.SampleWorkspaces, cfg.SampleResources)), noop, nil
	}
}

// seedDataset prefers the data file and falls back to generated sample data.
func seedDataset(cfg mock.Config) (mock.Dataset, error) {
	if _, err := os.Stat(cfg.DataFile); err != nil {
		return mock.SampleDataset(cfg.SampleWorkspaces, cfg.SampleResources), nil
	}
	return mock.ReadDataset(cfg.DataFile)
}
