package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

type resourcesFlags struct {
	page    int
	filters []string
	facets  bool
}

func newResourcesCmd(opts *options) *cobra.Command {
	flags := &resourcesFlags{}
	cmd := &cobra.Command{
		Use:   "resources <workspace-id>",
		Short: "List one page of a workspace's resources",
		Long: "List one page of a workspace's resources. Filters narrow the page to resources " +
			"whose attribute matches one of the selected values; repeat --filter to combine keys or values.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResources(cmd, opts, flags, args[0])
		},
	}
	cmd.Flags().IntVarP(&flags.page, "page", "p", 1, "page number")
	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "f", nil, "filter as key=value, repeatable")
	cmd.Flags().BoolVar(&flags.facets, "facets", false, "print the available filter values of the page")
	return cmd
}

// parseFilters groups key=value pairs by key, keeping value order.
func parseFilters(raw []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", f)
		}
		out[key] = append(out[key], value)
	}
	return out, nil
}

func runResources(cmd *cobra.Command, opts *options, flags *resourcesFlags, workspaceID string) error {
	filters, err := parseFilters(flags.filters)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	view, err := opts.openView(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer view.Close()

	settled := func(s catalog.Snapshot) bool { return s.State != catalog.StateLoading }

	if err := view.SelectWorkspace(workspaceID); err != nil {
		return err
	}
	snap, err := view.WaitFor(ctx, settled)
	if err != nil {
		return err
	}
	if flags.page != 1 && snap.State == catalog.StateReady {
		if err := view.GoToPage(flags.page); err != nil {
			return err
		}
		if snap, err = view.WaitFor(ctx, settled); err != nil {
			return err
		}
	}
	if snap.State == catalog.StateError {
		return fmt.Errorf("failed to load resources: %s", snap.Error)
	}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := view.SetFilter(key, filters[key]); err != nil {
			return err
		}
	}
	if snap, err = view.Snapshot(); err != nil {
		return err
	}

	if opts.jsonOut {
		return writeJSON(cmd.OutOrStdout(), snap)
	}
	printResources(cmd, snap, opts.cfg.Catalog.FilterKeys)
	if flags.facets {
		printFacets(cmd, snap)
	}
	return nil
}

func printResources(cmd *cobra.Command, snap catalog.Snapshot, keys []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace %s, page %d of %d (%d of %d resources shown)\n\n",
		snap.WorkspaceID, snap.Pagination.CurrentPage, snap.Pagination.TotalPages, len(snap.Resources), snap.LoadedCount)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := append([]string{"ID"}, keys...)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, r := range snap.Resources {
		row := []string{r.ID}
		for _, k := range keys {
			v, ok := r.Attribute(k)
			if !ok {
				v = "-"
			}
			row = append(row, v)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func printFacets(cmd *cobra.Command, snap catalog.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nFilters:")
	for _, g := range snap.Facets {
		values := make([]string, 0, len(g.Options))
		for _, o := range g.Options {
			mark := ""
			for _, sel := range snap.Filters[g.Key] {
				if sel == o.Value {
					mark = "*"
				}
			}
			values = append(values, o.Label+mark)
		}
		fmt.Fprintf(out, "  %s (%s): %s\n", g.Label, g.Key, strings.Join(values, ", "))
	}
}
