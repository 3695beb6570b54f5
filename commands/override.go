package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/categorize"
	"github.com/c360studio/expense-tracker/store"
)

// NewRecategorizeCommand moves a transaction to a new category and records
// the correction so the categorizer learns from it.
func NewRecategorizeCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize <id> <category>",
		Short: "Change a transaction's category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.Store()
			if err != nil {
				return err
			}

			category, err := a.requireCategory(args[1])
			if err != nil {
				return err
			}

			tx, err := resolveTransaction(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := categorize.RecordCorrection(cmd.Context(), st, tx, category); err != nil {
				return err
			}

			fmt.Printf("Recategorized %s (%s) as %s.\n", shortID(tx.ID), tx.Merchant, category)
			return nil
		},
	}
}

// NewRemerchantCommand renames a transaction's merchant.
func NewRemerchantCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remerchant <id> <merchant>",
		Short: "Change a transaction's merchant name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.Store()
			if err != nil {
				return err
			}

			tx, err := resolveTransaction(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := st.UpdateTransactionMerchant(cmd.Context(), tx.ID, args[1]); err != nil {
				return err
			}

			fmt.Printf("Renamed merchant on %s: %q -> %q.\n", shortID(tx.ID), tx.Merchant, args[1])
			return nil
		},
	}
}

// NewFlagCommand records a ground-truth verdict on a transaction.
func NewFlagCommand(app func() *App) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "flag <id> correct|wrong",
		Short: "Flag a transaction's extraction as correct or wrong",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.Store()
			if err != nil {
				return err
			}

			verdict := store.Verdict(args[1])
			if !verdict.Valid() {
				return fmt.Errorf("verdict must be correct or wrong, got %q", args[1])
			}

			tx, err := resolveTransaction(cmd, st, args[0])
			if err != nil {
				return err
			}
			if _, err := st.InsertEvalFlag(cmd.Context(), store.EvalFlag{
				TransactionID: tx.ID,
				Verdict:       verdict,
				Notes:         notes,
			}); err != nil {
				return err
			}

			fmt.Printf("Flagged %s as %s.\n", shortID(tx.ID), verdict)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Optional notes on the verdict")
	return cmd
}

// resolveTransaction finds a transaction by full id or unambiguous prefix.
func resolveTransaction(cmd *cobra.Command, st *store.Store, id string) (store.Transaction, error) {
	tx, err := st.GetTransaction(cmd.Context(), id)
	if err == nil {
		return tx, nil
	}

	matches, err := st.FindTransactionsByPrefix(cmd.Context(), id)
	if err != nil {
		return store.Transaction{}, err
	}
	switch len(matches) {
	case 0:
		return store.Transaction{}, fmt.Errorf("no transaction with id %q", id)
	case 1:
		return matches[0], nil
	default:
		return store.Transaction{}, fmt.Errorf("id %q is ambiguous (%d matches); use more characters", id, len(matches))
	}
}
