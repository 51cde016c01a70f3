package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/keypad-lock/internal/audit"
	"github.com/sweeney/keypad-lock/internal/config"
)

func newAttemptsCmd(cfg *config.Config) *cobra.Command {
	limit := 20

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recent code attempts from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AuditDB == "" {
				return errors.New("no audit log configured (set --audit-db)")
			}
			ctx := context.Background()
			store, err := audit.Open(ctx, cfg.AuditDB)
			if err != nil {
				return fmt.Errorf("open audit log: %w", err)
			}
			defer store.Close()

			attempts, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return printAttempts(cmd.OutOrStdout(), attempts)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", limit, "Number of attempts to show")
	return cmd
}

// printAttempts writes attempts as an aligned table, newest first.
func printAttempts(w io.Writer, attempts []audit.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "no attempts recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRESULT\tLENGTH\tID")
	for _, a := range attempts {
		result := "denied"
		if a.Granted {
			result = "granted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.At.UTC().Format(time.RFC3339), result, a.Length, a.ID)
	}
	return tw.Flush()
}
