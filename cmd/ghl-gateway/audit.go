package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/audit"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/sqlite"
)

func auditCmd() *cobra.Command {
	var (
		dbPath  string
		toolArg string
		outcome string
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print recent tool invocations",
		Long: `Print recent tool invocations from the audit database, newest first.

Examples:
  ghl-gateway audit --db ./audit.db
  ghl-gateway audit --db ./audit.db --outcome forbidden --limit 20 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = os.Getenv("AUDIT_DB_PATH")
			}
			if dbPath == "" {
				return usageError{err: fmt.Errorf("--db or AUDIT_DB_PATH is required")}
			}

			db, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			invocations, err := audit.NewStore(db).ListRecent(cmd.Context(), audit.ListFilter{
				Tool:    toolArg,
				Outcome: audit.Outcome(outcome),
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, inv := range invocations {
					if err := enc.Encode(inv); err != nil {
						return err
					}
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTOOL\tLOCATION\tOUTCOME\tSTATUS\tDURATION") //nolint:errcheck
			for _, inv := range invocations {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%dms\n", //nolint:errcheck
					inv.CreatedAt.Format(time.RFC3339), inv.Tool, inv.LocationID, inv.Outcome, inv.Status, inv.DurationMs)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Audit database path (default $AUDIT_DB_PATH)")
	cmd.Flags().StringVar(&toolArg, "tool", "", "Only show this tool")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show this outcome: success, downstream_error, unavailable, forbidden")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per line")
	return cmd
}
