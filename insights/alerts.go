package insights

import (
	"context"
	"fmt"

	"github.com/c360studio/expense-tracker/store"
)

// Alert types fired after a sync.
const (
	AlertSpendingSpike    = "spending_spike"
	AlertNewCategory      = "new_category"
	AlertLargeTransaction = "large_transaction"
)

// Alert is one post-sync observation worth surfacing to the user.
type Alert struct {
	Type     string
	Category string
	Message  string
	Amount   float64
}

// Alerts compares the current ISO week (Monday-starting) against the mean
// of the trailing four weeks per category, and scans the current week for
// large debits.
func (e *Engine) Alerts(ctx context.Context) ([]Alert, error) {
	now := e.now().UTC()
	curStart := weekStart(now)
	trailingStart := curStart.AddDate(0, 0, -28)

	current, err := e.store.CategoryDebitTotals(ctx, dateStr(curStart), dateStr(curStart.AddDate(0, 0, 7)))
	if err != nil {
		return nil, err
	}
	trailing, err := e.store.CategoryDebitTotals(ctx, dateStr(trailingStart), dateStr(curStart))
	if err != nil {
		return nil, err
	}

	avgBy := make(map[string]float64, len(trailing))
	for _, t := range trailing {
		avgBy[t.Category] = t.Total / 4
	}

	var alerts []Alert
	for _, t := range current {
		avg := avgBy[t.Category]
		switch {
		case avg == 0 && t.Total > 0:
			alerts = append(alerts, Alert{
				Type:     AlertNewCategory,
				Category: t.Category,
				Amount:   t.Total,
				Message: fmt.Sprintf("New spending category %s this week: %.2f",
					t.Category, t.Total),
			})
		case t.Total > avg*e.alerts.SpikeThreshold:
			alerts = append(alerts, Alert{
				Type:     AlertSpendingSpike,
				Category: t.Category,
				Amount:   t.Total,
				Message: fmt.Sprintf("%s spending is up %s this week: %.2f vs %.2f weekly average",
					t.Category, formatPct(pctChange(t.Total, avg)), t.Total, avg),
			})
		}
	}

	large, err := e.store.ListTransactions(ctx, store.Filter{
		StartDate:         dateStr(curStart),
		Direction:         store.DirectionDebit,
		MinAmount:         e.alerts.LargeTransactionAmount,
		ExcludeDuplicates: true,
	})
	if err != nil {
		return nil, err
	}
	for _, tx := range large {
		alerts = append(alerts, Alert{
			Type:     AlertLargeTransaction,
			Category: tx.Category,
			Amount:   tx.Amount,
			Message: fmt.Sprintf("Large transaction: %.2f %s to %s on %s",
				tx.Amount, tx.Currency, tx.Merchant, tx.Date),
		})
	}

	return alerts, nil
}
