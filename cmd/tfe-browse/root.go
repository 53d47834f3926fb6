package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/config"
	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

type options struct {
	configDir string
	baseURL   string
	token     string
	timeout   time.Duration
	jsonOut   bool
	verbose   bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tfe-browse",
		Short:         "Browse TFE workspaces and their resources",
		Long:          "tfe-browse searches workspaces and pages through a workspace's resources with facet filters, using the same view model as the catalog service.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configDir, "config", "c", config.DefaultConfigDir, "directory holding config.yml")
	root.PersistentFlags().StringVar(&opts.baseURL, "url", "", "TFE API base URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "TFE API token (overrides config)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall time limit")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print the view snapshot as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log view transitions to stderr")

	root.AddCommand(newWorkspacesCmd(opts))
	root.AddCommand(newResourcesCmd(opts))
	return root
}

func (o *options) load() error {
	cfg, err := config.LoadConfig(o.configDir)
	if err != nil {
		return err
	}
	if o.baseURL != "" {
		cfg.TFE.BaseURL = o.baseURL
	}
	if o.token != "" {
		cfg.TFE.Token = o.token
	}
	if err := cfg.TFE.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// openView starts a view against the configured API. The caller closes it.
func (o *options) openView(ctx context.Context, stderr io.Writer) (*catalog.View, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	view := catalog.NewView(o.cfg.Catalog, tfe.New(o.cfg.TFE), catalog.WithLogger(logger))
	if err := view.Start(ctx); err != nil {
		return nil, err
	}
	return view, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
