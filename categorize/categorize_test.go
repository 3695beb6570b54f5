package categorize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/llm/testutil"
	"github.com/c360studio/expense-tracker/store"
)

func newTestCategorizer(t *testing.T, mock *testutil.MockClient, opts ...Option) (*Categorizer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(mock, st, config.DefaultConfig().Categories, opts...), st
}

func seedEmail(t *testing.T, st *store.Store) {
	t.Helper()
	_, err := st.InsertRawEmail(context.Background(), store.RawEmail{
		MessageID: "msg-1",
		From:      "alerts@hdfcbank.net",
		Subject:   "Transaction alert",
		Date:      time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		BodyText:  "some alert body",
		FetchedAt: time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func seedTx(t *testing.T, st *store.Store, id, merchant string, amount float64) store.Transaction {
	t.Helper()
	tx := store.Transaction{
		ID:             id,
		EmailMessageID: "msg-1",
		Date:           "2025-07-01",
		Amount:         amount,
		Currency:       "INR",
		Direction:      store.DirectionDebit,
		Type:           store.TypeUPI,
		Merchant:       merchant,
		Source:         store.SourceRegex,
	}
	ok, err := st.InsertTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, ok)
	return tx
}

func sampleTx(merchant string) store.Transaction {
	return store.Transaction{
		ID:             "tx-sample",
		EmailMessageID: "msg-1",
		Date:           "2025-07-01",
		Amount:         349,
		Currency:       "INR",
		Direction:      store.DirectionDebit,
		Type:           store.TypeUPI,
		Merchant:       merchant,
		Source:         store.SourceRegex,
	}
}

func TestCategorizer_Assign(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{`{"category": "Food", "confidence": 0.92}`}}
	c, _ := newTestCategorizer(t, mock)

	res := c.Assign(context.Background(), sampleTx("Swiggy"))

	assert.Equal(t, "Food", res.Category)
	assert.InDelta(t, 0.92, res.Confidence, 0.001)

	prompt := mock.LastPrompt()
	assert.Contains(t, prompt, "- Food")
	assert.Contains(t, prompt, "- Other")
	assert.Contains(t, prompt, "Swiggy | upi | debit | INR 349.00 | 2025-07-01")
	assert.Contains(t, prompt, "Respond with JSON only:")
}

func TestCategorizer_Assign_UnknownCategoryBecomesOther(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{`{"category": "Gambling", "confidence": 0.9}`}}
	c, _ := newTestCategorizer(t, mock)

	res := c.Assign(context.Background(), sampleTx("Casino Royale"))

	assert.Equal(t, "Other", res.Category)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestCategorizer_Assign_CanonicalizesCase(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{`{"category": "food", "confidence": 0.8}`}}
	c, _ := newTestCategorizer(t, mock)

	res := c.Assign(context.Background(), sampleTx("Swiggy"))
	assert.Equal(t, "Food", res.Category)
}

func TestCategorizer_Assign_ClampsConfidence(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{`{"category": "Food", "confidence": 1.7}`}}
	c, _ := newTestCategorizer(t, mock)

	res := c.Assign(context.Background(), sampleTx("Swiggy"))
	assert.Equal(t, 1.0, res.Confidence)
}

func TestCategorizer_Assign_ModelFailure(t *testing.T) {
	mock := &testutil.MockClient{Err: errors.New("model unavailable")}
	c, _ := newTestCategorizer(t, mock)

	res := c.Assign(context.Background(), sampleTx("Swiggy"))

	assert.Equal(t, "Other", res.Category)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestCategorizer_Assign_CorrectionAppearsInPrompt(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{`{"category": "Shopping", "confidence": 0.9}`}}
	c, st := newTestCategorizer(t, mock)

	_, err := st.InsertCategoryCorrection(context.Background(), store.CategoryCorrection{
		Merchant:          "Swiggy Instamart",
		OriginalCategory:  "Food",
		CorrectedCategory: "Shopping",
		Description:       "groceries, not takeout",
	})
	require.NoError(t, err)

	c.Assign(context.Background(), sampleTx("Swiggy Instamart"))

	prompt := mock.LastPrompt()
	assert.Contains(t, prompt, "Swiggy Instamart")
	assert.Contains(t, prompt, `"Shopping"`)
	assert.Contains(t, prompt, `"Food"`)
	assert.Contains(t, prompt, "groceries, not takeout")
}

func TestCategorizer_Corrections_MerchantFirstThenBackfill(t *testing.T) {
	c, st := newTestCategorizer(t, &testutil.MockClient{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := st.InsertCategoryCorrection(ctx, store.CategoryCorrection{
			Merchant:          fmt.Sprintf("Merchant %d", i),
			CorrectedCategory: "Bills",
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := st.InsertCategoryCorrection(ctx, store.CategoryCorrection{
			Merchant:          "Swiggy",
			CorrectedCategory: "Food",
			CreatedAt:         base.Add(time.Duration(20+i) * time.Hour),
		})
		require.NoError(t, err)
	}

	got, err := c.corrections(ctx, "Swiggy")
	require.NoError(t, err)
	require.Len(t, got, DefaultCorrectionLimit)

	assert.Equal(t, "Swiggy", got[0].Merchant)
	assert.Equal(t, "Swiggy", got[1].Merchant)

	seen := map[int64]bool{}
	for _, cor := range got {
		assert.False(t, seen[cor.ID], "correction ids must not repeat")
		seen[cor.ID] = true
	}
}

func TestCategorizer_AssignBatch(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		`{"categories": [{"category": "Food", "confidence": 0.9}, {"category": "Transport", "confidence": 0.8}, {"category": "Shopping", "confidence": 0.7}]}`,
	}}
	c, _ := newTestCategorizer(t, mock)

	txs := []store.Transaction{sampleTx("Swiggy"), sampleTx("Uber"), sampleTx("Amazon")}
	results := c.AssignBatch(context.Background(), txs)

	require.Len(t, results, 3)
	assert.Equal(t, "Food", results[0].Category)
	assert.Equal(t, "Transport", results[1].Category)
	assert.Equal(t, "Shopping", results[2].Category)
	assert.Equal(t, 1, mock.CallCount())

	prompt := mock.LastPrompt()
	assert.Contains(t, prompt, "1. Swiggy")
	assert.Contains(t, prompt, "2. Uber")
	assert.Contains(t, prompt, "3. Amazon")
}

func TestCategorizer_AssignBatch_CountMismatchFallsBack(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		`{"categories": [{"category": "Food", "confidence": 0.9}]}`,
		`{"category": "Food", "confidence": 0.9}`,
		`{"category": "Transport", "confidence": 0.8}`,
		`{"category": "Shopping", "confidence": 0.7}`,
	}}
	c, _ := newTestCategorizer(t, mock)

	txs := []store.Transaction{sampleTx("Swiggy"), sampleTx("Uber"), sampleTx("Amazon")}
	results := c.AssignBatch(context.Background(), txs)

	require.Len(t, results, 3)
	assert.Equal(t, "Food", results[0].Category)
	assert.Equal(t, "Transport", results[1].Category)
	assert.Equal(t, "Shopping", results[2].Category)
	assert.Equal(t, 4, mock.CallCount(), "one batch call plus three individual retries")
}

func TestCategorizer_AssignBatch_ModelFailure(t *testing.T) {
	mock := &testutil.MockClient{Err: errors.New("model unavailable")}
	c, _ := newTestCategorizer(t, mock)

	results := c.AssignBatch(context.Background(), []store.Transaction{sampleTx("Swiggy"), sampleTx("Uber")})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, "Other", res.Category)
	}
}

func TestCategorizer_CategorizePending(t *testing.T) {
	mock := &testutil.MockClient{Responses: []string{
		`{"categories": [{"category": "Food", "confidence": 0.9}, {"category": "Food", "confidence": 0.9}, {"category": "Food", "confidence": 0.9}]}`,
	}}
	c, st := newTestCategorizer(t, mock)
	ctx := context.Background()

	seedEmail(t, st)
	seedTx(t, st, "tx-1", "Swiggy", 100)
	seedTx(t, st, "tx-2", "Zomato", 200)
	seedTx(t, st, "tx-3", "BigBasket", 300)

	categorized := sampleTx("Groww")
	categorized.ID = "tx-4"
	categorized.Amount = 400
	categorized.Category = "Investment"
	ok, err := st.InsertTransaction(ctx, categorized)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := c.CategorizePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	food, err := st.ListTransactions(ctx, store.Filter{Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, food, 3)

	kept, err := st.GetTransaction(ctx, "tx-4")
	require.NoError(t, err)
	assert.Equal(t, "Investment", kept.Category)

	// Nothing pending on a second run; the model is not consulted again.
	calls := mock.CallCount()
	n, err = c.CategorizePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, calls, mock.CallCount())
}
