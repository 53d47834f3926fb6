package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

func newWorkspacesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces [query]",
		Short: "Search workspaces by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runWorkspaces(cmd, opts, query)
		},
	}
}

func runWorkspaces(cmd *cobra.Command, opts *options, query string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	view, err := opts.openView(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer view.Close()

	if err := view.SearchNow(query); err != nil {
		return err
	}
	snap, err := view.WaitFor(ctx, func(s catalog.Snapshot) bool { return !s.Searching })
	if err != nil {
		return fmt.Errorf("search did not finish: %w", err)
	}
	if snap.SearchError != "" {
		return errors.New(snap.SearchError)
	}

	if opts.jsonOut {
		return writeJSON(cmd.OutOrStdout(), snap.Workspaces)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, ws := range snap.Workspaces {
		fmt.Fprintf(tw, "%s\t%s\n", ws.ID, ws.Name)
	}
	return tw.Flush()
}
