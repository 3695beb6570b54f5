package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInsightsCommand prints the read-side analysis: month-over-month
// movement, category trends, recurring merchants, and suggestions.
func NewInsightsCommand(app func() *App) *cobra.Command {
	var monthWindow int

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show spending trends, recurring merchants, and suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			eng, err := a.Insights()
			if err != nil {
				return err
			}

			months, err := eng.MonthOverMonth(ctx)
			if err != nil {
				return err
			}
			if monthWindow > 0 && len(months) > monthWindow {
				months = months[len(months)-monthWindow:]
			}
			if len(months) > 0 {
				fmt.Println("Month over month (debits):")
				tbl := newTable("Month", "Total", "Change")
				for _, m := range months {
					tbl.addRow(m.Month, formatAmount(m.Total, a.Config.Currency), fmt.Sprintf("%+.1f%%", m.ChangePct))
				}
				fmt.Print(tbl)
				fmt.Println()
			}

			trends, err := eng.CategoryTrends(ctx)
			if err != nil {
				return err
			}
			if len(trends) > 0 {
				fmt.Println("Category trends (this month vs last):")
				tbl := newTable("Category", "Current", "Previous", "Change")
				for _, tr := range trends {
					tbl.addRow(tr.Category,
						formatAmount(tr.Current, a.Config.Currency),
						formatAmount(tr.Previous, a.Config.Currency),
						fmt.Sprintf("%+.1f%%", tr.ChangePct))
				}
				fmt.Print(tbl)
				fmt.Println()
			}

			merchants, err := eng.RecurringMerchants(ctx)
			if err != nil {
				return err
			}
			if len(merchants) > 0 {
				fmt.Println("Recurring merchants:")
				tbl := newTable("Merchant", "Charges", "Total", "Average", "Frequency")
				for _, m := range merchants {
					tbl.addRow(truncate(m.Merchant, 24),
						fmt.Sprintf("%d", m.Count),
						formatAmount(m.Total, a.Config.Currency),
						formatAmount(m.Average, a.Config.Currency),
						m.Frequency)
				}
				fmt.Print(tbl)
				fmt.Println()
			}

			suggestions, err := eng.Suggestions(ctx)
			if err != nil {
				return err
			}
			if len(suggestions) > 0 {
				fmt.Println("Suggestions:")
				for _, s := range suggestions {
					fmt.Printf("  - %s\n", s.Message)
				}
			}

			if len(months) == 0 && len(trends) == 0 && len(merchants) == 0 && len(suggestions) == 0 {
				fmt.Println("Not enough data yet. Run a sync first.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&monthWindow, "months", 6, "Months of history to show (0 for all)")
	return cmd
}
