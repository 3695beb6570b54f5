package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/gmail"
	"github.com/c360studio/expense-tracker/store"
)

// NewSyncCommand ingests new emails and runs the full pipeline over them:
// parse, categorize, dedup, alerts.
func NewSyncCommand(app func() *App) *cobra.Command {
	var (
		since          string
		skipCategorize bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new notification emails and extract transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			opts := gmail.SyncOptions{}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since %q: use YYYY-MM-DD", since)
				}
				opts.Since = t
			}

			st, err := a.Store()
			if err != nil {
				return err
			}
			mailbox, err := a.Mailbox(ctx)
			if err != nil {
				return err
			}

			modelOK := a.ModelAvailable(ctx)
			if !modelOK {
				fmt.Println("Model binary not found: running regex parsing only, skipping categorization and dedup.")
			}

			syncer := gmail.NewSyncer(mailbox, st, a.Config, gmail.WithSyncLogger(a.Logger))
			result, err := syncer.Sync(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Found %d messages, stored %d new emails.\n", result.MessagesFound, result.NewEmailsStored)

			if len(result.NewMessageIDs) == 0 {
				fmt.Println("Nothing new to parse.")
				return nil
			}

			newTxIDs, parsed, err := a.parseEmails(ctx, result.NewMessageIDs, modelOK)
			if err != nil {
				return err
			}
			fmt.Printf("Extracted %d transactions.\n", parsed)

			if modelOK && !skipCategorize {
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

			if modelOK && len(newTxIDs) > 0 {
				eng, err := a.Dedup()
				if err != nil {
					return err
				}
				dres, err := eng.Run(ctx, newTxIDs)
				if err != nil {
					return err
				}
				if dres.DuplicatesFound > 0 {
					fmt.Printf("Flagged %d duplicates (checked %d pairs).\n", dres.DuplicatesFound, dres.PairsChecked)
				}
			}

			a.printAlerts(ctx)
			a.printReviewNotice(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Sync window start (YYYY-MM-DD); overrides the stored cursor")
	cmd.Flags().BoolVar(&skipCategorize, "skip-categorize", false, "Skip model-backed categorization")
	return cmd
}

// parseEmails runs the pipeline over stored emails and persists the
// extracted transactions. Returns the ids of newly inserted transactions
// and their count.
func (a *App) parseEmails(ctx context.Context, messageIDs []string, modelOK bool) ([]string, int, error) {
	st, err := a.Store()
	if err != nil {
		return nil, 0, err
	}
	registry := a.Registry(modelOK)

	var all []store.Transaction
	for _, id := range messageIDs {
		email, err := st.GetRawEmail(ctx, id)
		if err != nil {
			return nil, 0, fmt.Errorf("load email %s: %w", id, err)
		}
		all = append(all, registry.Parse(ctx, email)...)
	}
	if len(all) == 0 {
		return nil, 0, nil
	}

	inserted, err := st.InsertTransactions(ctx, all)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(all))
	for _, tx := range all {
		ids = append(ids, tx.ID)
	}
	return ids, inserted, nil
}

func (a *App) printAlerts(ctx context.Context) {
	eng, err := a.Insights()
	if err != nil {
		return
	}
	alerts, err := eng.Alerts(ctx)
	if err != nil || len(alerts) == 0 {
		return
	}
	fmt.Println("\nAlerts:")
	for _, alert := range alerts {
		fmt.Printf("  [%s] %s\n", alert.Type, alert.Message)
	}
}

func (a *App) printReviewNotice(ctx context.Context) {
	q, err := a.Review()
	if err != nil {
		return
	}
	count, err := q.Count(ctx)
	if err != nil || count == 0 {
		return
	}
	fmt.Printf("\n%d transactions need review. Run `expense-tracker review`.\n", count)
}
