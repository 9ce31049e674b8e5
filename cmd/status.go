package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read or set node statuses",
	}

	set := &cobra.Command{
		Use:   "set <node> <status>",
		Short: "Record a new status for a node",
		Args:  cobra.ExactArgs(2),
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
			ok, err := svc.SetNodeStatus(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("node %s does not exist", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], args[1])
			return nil
		},
	}

	var history int
	get := &cobra.Command{
		Use:   "get <node>",
		Short: "Print the latest status of a node, or its history with --history",
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

			if history > 0 {
				hist, err := svc.GetNodeStatusHistory(ctx, args[0], history)
				if err != nil {
					return err
				}
				return printJSON(cmd, hist)
			}
			st, err := svc.GetNodeStatus(ctx, args[0])
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("node %s does not exist", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", st.NodeID, st.Status)
			return nil
		},
	}
	get.Flags().IntVar(&history, "history", 0, "print up to this many past statuses, newest first")

	cmd.AddCommand(set, get)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
