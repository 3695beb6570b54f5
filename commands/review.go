package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/store"
)

// NewReviewCommand walks the review queue interactively: accept, correct
// with a new category, skip, or quit.
func NewReviewCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review low-confidence and duplicate-flagged transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			q, err := a.Review()
			if err != nil {
				return err
			}
			items, err := q.List(cmd.Context(), "")
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("Nothing to review.")
				return nil
			}
			return runReviewLoop(cmd, a, items, os.Stdin)
		},
	}
}

// runReviewLoop adjudicates each queued transaction from the reader.
// Commands: a (accept), c <category> (correct), s (skip), q (quit).
func runReviewLoop(cmd *cobra.Command, a *App, items []store.Transaction, in io.Reader) error {
	q, err := a.Review()
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	fmt.Printf("%d transactions to review. Commands: a=accept, c <category>=correct, s=skip, q=quit\n\n", len(items))

	for i, tx := range items {
		fmt.Printf("[%d/%d] %s  %s  %s  %s  %s",
			i+1, len(items), tx.Date,
			formatAmount(tx.Amount, a.Config.Currency),
			tx.Direction, tx.Merchant, tx.Category)
		if tx.Confidence != nil {
			fmt.Printf("  (confidence %.2f)", *tx.Confidence)
		}
		fmt.Println()

		resolved := false
		for !resolved {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			fields := strings.Fields(strings.TrimSpace(scanner.Text()))
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "a":
				if err := q.Accept(cmd.Context(), tx.ID); err != nil {
					return err
				}
				fmt.Println("Accepted.")
				resolved = true
			case "c":
				if len(fields) < 2 {
					fmt.Println("Usage: c <category>")
					continue
				}
				category, err := a.requireCategory(strings.Join(fields[1:], " "))
				if err != nil {
					fmt.Println(err)
					continue
				}
				if err := q.Correct(cmd.Context(), tx.ID, category); err != nil {
					return err
				}
				fmt.Printf("Recategorized as %s.\n", category)
				resolved = true
			case "s":
				fmt.Println("Skipped.")
				resolved = true
			case "q":
				fmt.Println("Stopping.")
				return nil
			default:
				fmt.Println("Commands: a=accept, c <category>=correct, s=skip, q=quit")
			}
		}
		fmt.Println()
	}

	fmt.Println("Review queue done.")
	return nil
}
