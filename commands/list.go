package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/store"
)

// NewListCommand prints filtered transactions, newest first.
func NewListCommand(app func() *App) *cobra.Command {
	var (
		from, to, txType, category, direction, bank string
		limit, offset                               int
		reviewOnly                                  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.Store()
			if err != nil {
				return err
			}

			filter := store.Filter{
				StartDate: from,
				EndDate:   to,
				Type:      store.TxType(txType),
				Category:  category,
				Direction: store.Direction(direction),
				Bank:      bank,
				Limit:     limit,
				Offset:    offset,
			}
			if reviewOnly {
				needsReview := true
				filter.NeedsReview = &needsReview
			}
			if filter.Type != "" && !filter.Type.Valid() {
				return fmt.Errorf("invalid --type %q", txType)
			}
			if filter.Direction != "" && !filter.Direction.Valid() {
				return fmt.Errorf("invalid --direction %q", direction)
			}

			txs, err := st.ListTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			total, err := st.CountTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if len(txs) == 0 {
				fmt.Println("No transactions match.")
				return nil
			}

			tbl := newTable("ID", "Date", "Amount", "Dir", "Type", "Merchant", "Category", "Bank", "Review")
			for _, tx := range txs {
				reviewMark := ""
				if tx.NeedsReview {
					reviewMark = "yes"
				}
				tbl.addRow(
					shortID(tx.ID),
					tx.Date,
					formatAmount(tx.Amount, a.Config.Currency),
					string(tx.Direction),
					string(tx.Type),
					truncate(tx.Merchant, 24),
					tx.Category,
					tx.Bank,
					reviewMark,
				)
			}
			fmt.Print(tbl)
			fmt.Printf("\nShowing %d of %d transactions.\n", len(txs), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&txType, "type", "", "Transaction type (upi, credit_card, bank_transfer, sip, loan)")
	cmd.Flags().StringVar(&category, "category", "", "Category filter")
	cmd.Flags().StringVar(&direction, "direction", "", "Direction filter (debit, credit)")
	cmd.Flags().StringVar(&bank, "bank", "", "Bank filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&reviewOnly, "review", false, "Only transactions needing review")
	return cmd
}
