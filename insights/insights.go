// Package insights derives read-side spending analysis from the ledger:
// month-over-month movement, category trends, recurring merchants, post-sync
// alerts, and rule-based suggestions. No model calls; everything here is
// SQL aggregates plus arithmetic.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/store"
)

// Frequency labels for recurring merchants, by mean gap between charges.
const (
	FrequencyWeekly     = "weekly"
	FrequencyMonthly    = "monthly"
	FrequencyOccasional = "occasional"
)

// MonthChange is one month's debit total against the month before.
type MonthChange struct {
	Month     string // YYYY-MM
	Total     float64
	PrevTotal float64
	ChangePct float64
}

// CategoryTrend compares a category's current month against the previous.
type CategoryTrend struct {
	Category  string
	Current   float64
	Previous  float64
	ChangePct float64
}

// RecurringMerchant is a merchant with repeat debit activity.
type RecurringMerchant struct {
	Merchant  string
	Count     int
	Total     float64
	Average   float64
	Frequency string
}

// Engine computes insights over the store.
type Engine struct {
	store  *store.Store
	alerts config.AlertsConfig
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock fixes the current-time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an insights engine.
func New(st *store.Store, alerts config.AlertsConfig, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		alerts: alerts,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MonthOverMonth returns, for each month after the first, the percent
// change of its debit total against the previous month.
func (e *Engine) MonthOverMonth(ctx context.Context) ([]MonthChange, error) {
	totals, err := e.store.MonthlyDebitTotals(ctx)
	if err != nil {
		return nil, err
	}

	var changes []MonthChange
	for i := 1; i < len(totals); i++ {
		prev := totals[i-1].Total
		cur := totals[i].Total
		changes = append(changes, MonthChange{
			Month:     totals[i].Month,
			Total:     cur,
			PrevTotal: prev,
			ChangePct: pctChange(cur, prev),
		})
	}
	return changes, nil
}

// CategoryTrends compares each category's debit total this calendar month
// against the previous month, sorted by absolute percent change.
func (e *Engine) CategoryTrends(ctx context.Context) ([]CategoryTrend, error) {
	now := e.now().UTC()
	curStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := curStart.AddDate(0, -1, 0)
	nextStart := curStart.AddDate(0, 1, 0)

	current, err := e.store.CategoryDebitTotals(ctx, dateStr(curStart), dateStr(nextStart))
	if err != nil {
		return nil, err
	}
	previous, err := e.store.CategoryDebitTotals(ctx, dateStr(prevStart), dateStr(curStart))
	if err != nil {
		return nil, err
	}

	prevBy := make(map[string]float64, len(previous))
	for _, t := range previous {
		prevBy[t.Category] = t.Total
	}

	seen := make(map[string]bool, len(current))
	var trends []CategoryTrend
	for _, t := range current {
		seen[t.Category] = true
		prev := prevBy[t.Category]
		trends = append(trends, CategoryTrend{
			Category:  t.Category,
			Current:   t.Total,
			Previous:  prev,
			ChangePct: pctChange(t.Total, prev),
		})
	}
	for _, t := range previous {
		if !seen[t.Category] {
			trends = append(trends, CategoryTrend{
				Category:  t.Category,
				Previous:  t.Total,
				ChangePct: -100,
			})
		}
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return math.Abs(trends[i].ChangePct) > math.Abs(trends[j].ChangePct)
	})
	return trends, nil
}

// RecurringMerchants returns merchants charged at least twice, labeled by
// charge frequency: mean gap of at most 10 days is weekly, at most 45 days
// monthly, anything slower occasional.
func (e *Engine) RecurringMerchants(ctx context.Context) ([]RecurringMerchant, error) {
	stats, err := e.store.MerchantStats(ctx)
	if err != nil {
		return nil, err
	}

	merchants := make([]RecurringMerchant, 0, len(stats))
	for _, m := range stats {
		merchants = append(merchants, RecurringMerchant{
			Merchant:  m.Merchant,
			Count:     m.Count,
			Total:     m.Total,
			Average:   m.Average,
			Frequency: frequencyLabel(m),
		})
	}
	return merchants, nil
}

// frequencyLabel classifies a merchant's charge cadence from the mean gap
// between first and last charge.
func frequencyLabel(m store.MerchantStat) string {
	first, err1 := time.Parse("2006-01-02", m.FirstDate)
	last, err2 := time.Parse("2006-01-02", m.LastDate)
	if err1 != nil || err2 != nil || m.Count < 2 {
		return FrequencyOccasional
	}

	meanGap := last.Sub(first).Hours() / 24 / float64(m.Count-1)
	switch {
	case meanGap <= 10:
		return FrequencyWeekly
	case meanGap <= 45:
		return FrequencyMonthly
	default:
		return FrequencyOccasional
	}
}

// pctChange computes (cur − prev) / prev × 100; a zero base with current
// activity reads as +100%.
func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - prev) / prev * 100
}

func dateStr(t time.Time) string {
	return t.Format("2006-01-02")
}

// weekStart returns the Monday 00:00 UTC starting the ISO week containing t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func formatPct(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}
