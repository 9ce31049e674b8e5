package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"graphd/internal/model"
)

func newLogsCmd(c *cli) *cobra.Command {
	var (
		limit      int
		entityType string
		entityID   string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print audit log entries as JSON",
		Example: `  graphd logs --limit 20
  graphd logs --entity-type node --entity-id api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (entityType == "") != (entityID == "") {
				return fmt.Errorf("--entity-type and --entity-id must be given together")
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

			var entries []model.AuditEntry
			if entityType != "" {
				entries, err = svc.GetAuditHistory(ctx, model.EntityType(entityType), entityID)
			} else {
				entries, err = svc.GetLogs(ctx, limit)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of entries")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "only entries for this entity type (node, edge, status)")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "only entries for this entity id")
	return cmd
}
