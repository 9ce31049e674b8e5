package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"graphd/internal/snapshot"
)

func newExportCmd(c *cli) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "export <out.db>",
		Short: "Write the graph, its statuses and catalogs to a standalone SQLite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			ctx, err := c.actorContext(cmd.Context(), svc)
			if err != nil {
				return err
			}

			prog := snapshot.NewProgress(c.logger, verbose)
			snap, err := snapshot.Collect(ctx, svc)
			if err != nil {
				return err
			}
			return snapshot.Export(ctx, args[0], snap, prog)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log batch progress")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "import <graph.yaml|graph.json>",
		Short: "Insert the nodes, edges and statuses of a graph document",
		Long: `Insert the nodes, edges and statuses of a graph document.

Nodes and edges that already exist are left untouched. The import stops at the
first rejected entry; everything inserted before it is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := snapshot.LoadDocument(args[0])
			if err != nil {
				return err
			}
			svc, closeDB, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			ctx, err := c.actorContext(cmd.Context(), svc)
			if err != nil {
				return err
			}

			res, err := snapshot.Import(ctx, svc, doc, snapshot.NewProgress(c.logger, verbose))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, %d edges, %d statuses\n", res.Nodes, res.Edges, res.Statuses)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log batch progress")
	return cmd
}
