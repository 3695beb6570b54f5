package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/expense-tracker/llm/testutil"
	"github.com/c360studio/expense-tracker/store"
)

func newTestEngine(t *testing.T, mock *testutil.MockClient, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(mock, st, opts...), st
}

func seedLedger(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.InsertRawEmail(ctx, store.RawEmail{
		MessageID: "msg-1",
		From:      "alerts@hdfcbank.net",
		Subject:   "alerts",
		Date:      time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		BodyText:  "body",
		FetchedAt: time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rows := []struct {
		id       string
		merchant string
		amount   float64
	}{
		{"tx-1", "BigBasket", 3000},
		{"tx-2", "Swiggy", 500},
		{"tx-3", "Uber", 200},
	}
	for _, r := range rows {
		ok, err := st.InsertTransaction(ctx, store.Transaction{
			ID:             r.id,
			EmailMessageID: "msg-1",
			Date:           "2025-07-01",
			Amount:         r.amount,
			Currency:       "INR",
			Direction:      store.DirectionDebit,
			Type:           store.TypeUPI,
			Merchant:       r.merchant,
			Source:         store.SourceRegex,
		})
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestEngine_Ask(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		"SELECT merchant, amount FROM transactions ORDER BY amount DESC",
		"You spent the most at BigBasket (INR 3000).",
	}}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "Where did I spend the most?")
	require.NoError(t, err)

	assert.Equal(t, "You spent the most at BigBasket (INR 3000).", ans.Text)
	assert.Equal(t, "SELECT merchant, amount FROM transactions ORDER BY amount DESC", ans.SQL)
	assert.Equal(t, []string{"merchant", "amount"}, ans.Columns)
	require.Len(t, ans.Rows, 3)
	assert.Equal(t, []string{"BigBasket", "3000"}, ans.Rows[0])
	assert.Equal(t, 2, mock.CallCount())

	prompts := mock.Prompts()
	assert.Contains(t, prompts[0], "CREATE TABLE transactions")
	assert.Contains(t, prompts[0], "Where did I spend the most?")
	assert.Contains(t, prompts[1], "BigBasket | 3000")
	assert.Contains(t, prompts[1], "Where did I spend the most?")
}

func TestEngine_Ask_CannotAnswer(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{"SELECT 'CANNOT_ANSWER' as error;"}}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "What is the meaning of life?")
	require.NoError(t, err)

	assert.Empty(t, ans.SQL)
	assert.Contains(t, ans.Text, "can't answer")
	assert.Equal(t, 1, mock.CallCount(), "no execution or interpretation should happen")
}

func TestEngine_Ask_RejectsWrite(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{"DELETE FROM transactions;"}}
	e, st := newTestEngine(t, mock)
	ctx := context.Background()
	seedLedger(t, st)

	ans, err := e.Ask(ctx, "Delete everything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "DELETE FROM transactions;", ans.SQL)

	// Nothing was executed.
	n, err := st.CountTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, mock.CallCount())
}

func TestEngine_Ask_FencedSQL(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		"```sql\nSELECT COUNT(*) AS n FROM transactions\n```",
		"There are 3 transactions.",
	}}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "How many transactions do I have?")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) AS n FROM transactions", ans.SQL)
	require.Len(t, ans.Rows, 1)
	assert.Equal(t, []string{"3"}, ans.Rows[0])
	assert.Equal(t, "There are 3 transactions.", ans.Text)
}

func TestEngine_Ask_InterpretationFallback(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		"SELECT merchant FROM transactions ORDER BY merchant",
		"",
	}}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "List my merchants")
	require.NoError(t, err)

	// The raw pipe-delimited table stands in for the missing prose.
	assert.Contains(t, ans.Text, "merchant")
	assert.Contains(t, ans.Text, "BigBasket")
	assert.Contains(t, ans.Text, "Uber")
}

func TestEngine_Ask_ExecutionError(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{"SELECT definitely_missing FROM transactions"}}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "Broken question")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "executing generated query")
	assert.Equal(t, "SELECT definitely_missing FROM transactions", ans.SQL)
}

func TestEngine_Ask_MaxRows(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		"SELECT merchant FROM transactions ORDER BY merchant",
		"Here are your merchants.",
	}}
	e, st := newTestEngine(t, mock, WithMaxRows(2))
	seedLedger(t, st)

	ans, err := e.Ask(context.Background(), "List my merchants")
	require.NoError(t, err)
	assert.Len(t, ans.Rows, 2)
}

func TestEngine_Ask_GenerationFailure(t *testing.T) {
	mock := &testutil.MockClient{Err: errors.New("model unavailable")}
	e, st := newTestEngine(t, mock)
	seedLedger(t, st)

	_, err := e.Ask(context.Background(), "Anything")
	require.Error(t, err)
}
