package insights

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/store"
)

func newTestEngine(t *testing.T, now time.Time) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	alerts := config.DefaultConfig().Alerts
	e := New(st, alerts, WithClock(func() time.Time { return now }))
	return e, st
}

func seedEmail(t *testing.T, st *store.Store, id string) {
	t.Helper()
	_, err := st.InsertRawEmail(context.Background(), store.RawEmail{
		MessageID: id,
		From:      "alerts@hdfcbank.net",
		Subject:   "Transaction alert",
		Date:      time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		BodyText:  "alert body",
	})
	require.NoError(t, err)
}

func seedDebit(t *testing.T, st *store.Store, id, emailID, merchant, category string, amount float64, date string) {
	t.Helper()
	ok, err := st.InsertTransaction(context.Background(), store.Transaction{
		ID:             id,
		EmailMessageID: emailID,
		Date:           date,
		Amount:         amount,
		Currency:       "INR",
		Direction:      store.DirectionDebit,
		Type:           store.TypeUPI,
		Merchant:       merchant,
		Category:       category,
		Source:         store.SourceRegex,
	})
	require.NoError(t, err)
	require.True(t, ok, "seed transaction %s not inserted", id)
}

func TestMonthOverMonth(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	seedDebit(t, st, "t1", "e1", "Amazon", "Shopping", 1000, "2025-05-10")
	seedDebit(t, st, "t2", "e1", "Swiggy", "Food", 1000, "2025-05-20")
	seedDebit(t, st, "t3", "e1", "Amazon", "Shopping", 3000, "2025-06-10")
	seedDebit(t, st, "t4", "e1", "Uber", "Transport", 1500, "2025-07-05")

	changes, err := e.MonthOverMonth(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "2025-06", changes[0].Month)
	assert.InDelta(t, 50.0, changes[0].ChangePct, 0.01) // 2000 -> 3000
	assert.Equal(t, "2025-07", changes[1].Month)
	assert.InDelta(t, -50.0, changes[1].ChangePct, 0.01) // 3000 -> 1500
}

func TestCategoryTrendsSortedByAbsoluteChange(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// Food: 1000 -> 1100 (+10%). Shopping: 1000 -> 2500 (+150%).
	seedDebit(t, st, "t1", "e1", "Swiggy", "Food", 1000, "2025-06-10")
	seedDebit(t, st, "t2", "e1", "Swiggy", "Food", 1100, "2025-07-10")
	seedDebit(t, st, "t3", "e1", "Amazon", "Shopping", 1000, "2025-06-12")
	seedDebit(t, st, "t4", "e1", "Amazon", "Shopping", 2500, "2025-07-12")

	trends, err := e.CategoryTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, "Shopping", trends[0].Category)
	assert.InDelta(t, 150.0, trends[0].ChangePct, 0.01)
	assert.Equal(t, "Food", trends[1].Category)
	assert.InDelta(t, 10.0, trends[1].ChangePct, 0.01)
}

func TestCategoryTrendsVanishedCategory(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")
	seedDebit(t, st, "t1", "e1", "BookMyShow", "Entertainment", 800, "2025-06-15")

	trends, err := e.CategoryTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, "Entertainment", trends[0].Category)
	assert.InDelta(t, -100.0, trends[0].ChangePct, 0.01)
	assert.Zero(t, trends[0].Current)
}

func TestRecurringMerchants(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// Swiggy weekly: 5 charges over 28 days, mean gap 7.
	for i, date := range []string{"2025-06-01", "2025-06-08", "2025-06-15", "2025-06-22", "2025-06-29"} {
		seedDebit(t, st, "sw"+date, "e1", "Swiggy", "Food", float64(400+i), date)
	}
	// Netflix monthly: 3 charges, mean gap 30.
	for i, date := range []string{"2025-05-01", "2025-05-31", "2025-06-30"} {
		seedDebit(t, st, "nf"+date, "e1", "Netflix", "Entertainment", float64(650+i), date)
	}
	// Single charge: not recurring.
	seedDebit(t, st, "once", "e1", "IRCTC", "Transport", 1200, "2025-06-20")

	merchants, err := e.RecurringMerchants(context.Background())
	require.NoError(t, err)
	require.Len(t, merchants, 2)

	byName := map[string]RecurringMerchant{}
	for _, m := range merchants {
		byName[m.Merchant] = m
	}
	assert.Equal(t, FrequencyWeekly, byName["Swiggy"].Frequency)
	assert.Equal(t, 5, byName["Swiggy"].Count)
	assert.Equal(t, FrequencyMonthly, byName["Netflix"].Frequency)
}

func TestAlertsSpendingSpike(t *testing.T) {
	// Wednesday 2025-07-16; current ISO week starts Monday 2025-07-14.
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// Food: 1000 in each of the four trailing weeks, 2000 this week.
	for _, date := range []string{"2025-06-16", "2025-06-23", "2025-06-30", "2025-07-07"} {
		seedDebit(t, st, "f"+date, "e1", "Swiggy", "Food", 1000, date)
	}
	seedDebit(t, st, "fcur", "e1", "Swiggy", "Food", 2000, "2025-07-15")

	alerts, err := e.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Equal(t, AlertSpendingSpike, alerts[0].Type)
	assert.Equal(t, "Food", alerts[0].Category)
	assert.Contains(t, alerts[0].Message, "100%")
}

func TestAlertsNewCategoryAndLargeTransaction(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// No trailing history for Health; one charge this week.
	seedDebit(t, st, "h1", "e1", "Apollo", "Health", 900, "2025-07-14")
	// A debit at the large-transaction threshold this week.
	seedDebit(t, st, "big", "e1", "MakeMyTrip", "Transport", 15000, "2025-07-15")

	alerts, err := e.Alerts(context.Background())
	require.NoError(t, err)

	types := map[string]int{}
	for _, a := range alerts {
		types[a.Type]++
	}
	assert.Equal(t, 1, types[AlertLargeTransaction])
	// Health and Transport both have no trailing average.
	assert.Equal(t, 2, types[AlertNewCategory])
}

func TestAlertsQuietWeek(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// Steady spending within threshold: 1000 avg, 1200 current (< 1400).
	for _, date := range []string{"2025-06-16", "2025-06-23", "2025-06-30", "2025-07-07"} {
		seedDebit(t, st, "f"+date, "e1", "Swiggy", "Food", 1000, date)
	}
	seedDebit(t, st, "fcur", "e1", "Swiggy", "Food", 1200, "2025-07-14")

	alerts, err := e.Alerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestSuggestions(t *testing.T) {
	e, st := newTestEngine(t, time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC))
	seedEmail(t, st, "e1")

	// Category spike: Shopping 600 -> 1200 (+100%, current > 500).
	seedDebit(t, st, "s1", "e1", "Amazon", "Shopping", 600, "2025-06-10")
	seedDebit(t, st, "s2", "e1", "Amazon", "Shopping", 1200, "2025-07-10")
	// Recurring weekly merchant above 2000 total.
	for i, date := range []string{"2025-07-01", "2025-07-08", "2025-07-15"} {
		seedDebit(t, st, "z"+date, "e1", "Zepto", "Food", float64(900+i), date)
	}

	suggestions, err := e.Suggestions(context.Background())
	require.NoError(t, err)

	rules := map[string]bool{}
	for _, s := range suggestions {
		rules[s.Rule] = true
	}
	assert.True(t, rules["category_spike"], "expected category_spike, got %+v", suggestions)
	assert.True(t, rules["recurring_weekly"], "expected recurring_weekly, got %+v", suggestions)
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), "2025-07-14"}, // Wednesday
		{time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), "2025-07-14"},  // Monday
		{time.Date(2025, 7, 20, 23, 0, 0, 0, time.UTC), "2025-07-14"}, // Sunday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, weekStart(tt.in).Format("2006-01-02"))
	}
}
