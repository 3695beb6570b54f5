package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/store"
)

// NewSummaryCommand prints totals by category and direction for a window.
func NewSummaryCommand(app func() *App) *cobra.Command {
	var from, to, direction string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			st, err := a.Store()
			if err != nil {
				return err
			}

			dir := store.Direction(direction)
			if dir == "" {
				dir = store.DirectionDebit
			}
			if !dir.Valid() {
				return fmt.Errorf("invalid --direction %q", direction)
			}

			txs, err := st.ListTransactions(ctx, store.Filter{
				StartDate:         from,
				EndDate:           to,
				Direction:         dir,
				ExcludeDuplicates: true,
			})
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Println("No transactions match.")
				return nil
			}

			totals := map[string]float64{}
			counts := map[string]int{}
			var grand float64
			for _, tx := range txs {
				cat := tx.Category
				if cat == "" {
					cat = "Other"
				}
				totals[cat] += tx.Amount
				counts[cat]++
				grand += tx.Amount
			}

			tbl := newTable("Category", "Count", "Total", "Share")
			for _, cat := range a.Config.Categories.List {
				if counts[cat] == 0 {
					continue
				}
				tbl.addRow(
					cat,
					fmt.Sprintf("%d", counts[cat]),
					formatAmount(totals[cat], a.Config.Currency),
					fmt.Sprintf("%.1f%%", totals[cat]/grand*100),
				)
			}
			fmt.Print(tbl)
			fmt.Printf("\nTotal (%s): %s across %d transactions.\n",
				dir, formatAmount(grand, a.Config.Currency), len(txs))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&direction, "direction", "debit", "Direction to total (debit, credit)")
	return cmd
}
