package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/config"
	"github.com/tfecatalog/tfe-catalog/internal/logging"
	"github.com/tfecatalog/tfe-catalog/internal/services"
)

func main() {
	// 0. Parse Command Line Flags
	configDir := flag.String("config", config.DefaultConfigDir, "Directory holding config.yml and config.local.yml")
	noRealtime := flag.Bool("no-realtime", false, "Disable the websocket endpoint")
	noEvents := flag.Bool("no-events", false, "Do not publish view events")
	noMetrics := flag.Bool("no-metrics", false, "Do not serve /metrics")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() {
		if err := logging.Shutdown(); err != nil {
			log.Printf("Failed to close logs: %v", err)
		}
	}()

	// 2. Initialize Service Manager
	opts := services.Options{
		RunRealtime: !*noRealtime,
		RunEvents:   !*noEvents,
		RunMetrics:  !*noMetrics,
	}
	slog.Info("Starting TFE catalog",
		"realtime", opts.RunRealtime,
		"events", opts.RunEvents,
		"metrics", opts.RunMetrics,
		"port", cfg.Server.HTTPPort,
	)
	mgr := services.NewManager(cfg, opts)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()
	if err := mgr.Init(initCtx); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	// 3. Start Services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	mgr.Start(bgCtx)

	// 4. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel background tasks first
	bgCancel()
	mgr.Shutdown(shutdownCtx)

	slog.Info("All services stopped.")
}
