package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/export"
	"github.com/c360studio/expense-tracker/store"
)

// NewExportCommand writes the filtered ledger to stdout or a file.
func NewExportCommand(app func() *App) *cobra.Command {
	var (
		format, from, to, output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as csv, json, or yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.Store()
			if err != nil {
				return err
			}

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			txs, err := st.ListTransactions(cmd.Context(), store.Filter{
				StartDate: from,
				EndDate:   to,
			})
			if err != nil {
				return err
			}

			w := os.Stdout
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			if err := export.Write(w, f, txs); err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("Exported %d transactions to %s.\n", len(txs), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv, json, yaml)")
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
