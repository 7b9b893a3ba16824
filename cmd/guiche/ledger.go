package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/guiche/internal/presentation/text"
	"github.com/aretw0/guiche/pkg/identity"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Audit the decision ledger",
}

var ledgerLsCmd = &cobra.Command{
	Use:   "ls [cpf]",
	Short: "List recorded credit decisions, optionally for one client",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var id string
		if len(args) == 1 {
			id = identity.Normalize(args[0])
		}
		entries, err := app.Ledger.ListDecisions(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("error reading ledger: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCPF\tREQUESTED\tCURRENT\tMAX\tSTATUS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Format(time.RFC3339),
				e.Identifier,
				text.FormatBRL(e.RequestedLimit),
				text.FormatBRL(e.CurrentLimit),
				text.FormatBRL(e.MaxAllowed),
				e.Status,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerLsCmd)
	ledgerLsCmd.Flags().Bool("json", false, "Print one JSON entry per line")
}
