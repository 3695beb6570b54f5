package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MonthTotal is the debit total for one calendar month.
type MonthTotal struct {
	Month string // YYYY-MM
	Total float64
}

// CategoryTotal is the debit total for one category over a window.
type CategoryTotal struct {
	Category string
	Total    float64
}

// MerchantStat aggregates a merchant's debit activity.
type MerchantStat struct {
	Merchant  string
	Count     int
	Total     float64
	Average   float64
	FirstDate string
	LastDate  string
}

// notDuplicate excludes transactions resolved as duplicates from
// aggregates, so a twice-notified payment counts once.
const notDuplicate = "id NOT IN (SELECT duplicate_transaction_id FROM duplicate_groups)"

// MonthlyDebitTotals returns debit totals per calendar month, ascending.
func (s *Store) MonthlyDebitTotals(ctx context.Context) ([]MonthTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT substr(date, 1, 7) AS month, SUM(amount)
FROM transactions
WHERE direction = 'debit' AND `+notDuplicate+`
GROUP BY month
ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("monthly debit totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var t MonthTotal
		if err := rows.Scan(&t.Month, &t.Total); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// CategoryDebitTotals returns debit totals per category for dates in
// [start, end). Uncategorized rows count under "Other".
func (s *Store) CategoryDebitTotals(ctx context.Context, start, end string) ([]CategoryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT COALESCE(NULLIF(category, ''), 'Other') AS cat, SUM(amount)
FROM transactions
WHERE direction = 'debit' AND date >= ? AND date < ? AND `+notDuplicate+`
GROUP BY cat
ORDER BY SUM(amount) DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("category debit totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// MerchantStats aggregates debit activity per merchant, merchants with at
// least two transactions only, largest spend first.
func (s *Store) MerchantStats(ctx context.Context) ([]MerchantStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT merchant, COUNT(*), SUM(amount), AVG(amount), MIN(date), MAX(date)
FROM transactions
WHERE direction = 'debit' AND merchant != '' AND `+notDuplicate+`
GROUP BY merchant
HAVING COUNT(*) >= 2
ORDER BY SUM(amount) DESC`)
	if err != nil {
		return nil, fmt.Errorf("merchant stats: %w", err)
	}
	defer rows.Close()

	var stats []MerchantStat
	for rows.Next() {
		var m MerchantStat
		if err := rows.Scan(&m.Merchant, &m.Count, &m.Total, &m.Average, &m.FirstDate, &m.LastDate); err != nil {
			return nil, fmt.Errorf("scan merchant stat: %w", err)
		}
		stats = append(stats, m)
	}
	return stats, rows.Err()
}

// DebitTotalBetween returns the debit total for dates in [start, end).
func (s *Store) DebitTotalBetween(ctx context.Context, start, end string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
SELECT SUM(amount) FROM transactions
WHERE direction = 'debit' AND date >= ? AND date < ? AND `+notDuplicate,
		start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("debit total: %w", err)
	}
	return total.Float64, nil
}
