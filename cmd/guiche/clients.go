package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/guiche/internal/adapters/csv"
	"github.com/aretw0/guiche/internal/presentation/text"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage the client directory",
}

var clientsImportCmd = &cobra.Command{
	Use:   "import <clients.csv>",
	Short: "Insert or replace clients from a CSV file",
	Long: `Reads a CSV with columns cpf, nome, data_nascimento, score and limite
(English headers id, name, birth_date, score, limit also work) and upserts
every row into the configured store. Use store.backend=sqlite to persist.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		clients, err := csv.ReadClients(f)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", args[0], err)
		}

		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, c := range clients {
			if err := app.Clients.PutClient(cmd.Context(), c); err != nil {
				return fmt.Errorf("error importing client: %w", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d client(s) into %s store\n", len(clients), app.Config.Store.Backend)
		return nil
	},
}

var clientsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		clients, err := app.Clients.ListClients(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CPF\tNAME\tSCORE\tLIMIT")
		for _, c := range clients {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", c.ID, c.Name, c.Score, text.FormatBRL(c.Limit))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsImportCmd)
	clientsCmd.AddCommand(clientsLsCmd)
}
