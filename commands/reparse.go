package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReparseCommand re-runs the parsing pipeline over stored emails
// without touching the mailbox. The composite transaction key makes this
// non-destructive: already-extracted transactions are skipped on insert.
func NewReparseCommand(app func() *App) *cobra.Command {
	var (
		missingOnly    bool
		skipCategorize bool
	)

	cmd := &cobra.Command{
		Use:   "reparse",
		Short: "Re-run the parsers over already-fetched emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			st, err := a.Store()
			if err != nil {
				return err
			}

			var ids []string
			if missingOnly {
				ids, err = st.RawEmailIDsWithoutTransactions(ctx)
			} else {
				ids, err = st.ListRawEmailIDs(ctx)
			}
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No emails to reparse.")
				return nil
			}

			modelOK := a.ModelAvailable(ctx)
			if !modelOK {
				fmt.Println("Model binary not found: running regex parsing only.")
			}

			_, parsed, err := a.parseEmails(ctx, ids, modelOK)
			if err != nil {
				return err
			}
			fmt.Printf("Reparsed %d emails, extracted %d new transactions.\n", len(ids), parsed)

			if modelOK && !skipCategorize && parsed > 0 {
				cat, err := a.Categorizer()
				if err != nil {
					return err
				}
				n, err := cat.CategorizePending(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Categorized %d transactions.\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing", false, "Only emails that produced no transactions")
	cmd.Flags().BoolVar(&skipCategorize, "skip-categorize", false, "Skip model-backed categorization")
	return cmd
}
