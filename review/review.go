// Package review surfaces low-confidence transactions for human
// adjudication. Accepting a row clears its review flag; correcting one
// additionally records the recategorization so the categorizer learns
// from it.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/expense-tracker/categorize"
	"github.com/c360studio/expense-tracker/store"
)

// Queue is the review queue over the store.
type Queue struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// New creates a review queue.
func New(st *store.Store, opts ...Option) *Queue {
	q := &Queue{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// List returns the transactions awaiting review, optionally filtered by
// pipeline source (pass "" for all).
func (q *Queue) List(ctx context.Context, source store.TxSource) ([]store.Transaction, error) {
	return q.store.ReviewQueue(ctx, source)
}

// Count returns how many transactions await review.
func (q *Queue) Count(ctx context.Context) (int, error) {
	return q.store.CountReviewQueue(ctx)
}

// Accept resolves a transaction as correct, clearing its review flag.
func (q *Queue) Accept(ctx context.Context, id string) error {
	if _, err := q.store.GetTransaction(ctx, id); err != nil {
		return fmt.Errorf("accept %s: %w", id, err)
	}
	if err := q.store.UpdateTransactionReview(ctx, id, false); err != nil {
		return fmt.Errorf("accept %s: %w", id, err)
	}
	q.logger.Debug("Accepted transaction", "id", id)
	return nil
}

// Correct resolves a transaction with a new category: the category is
// updated, a correction row is recorded for the categorizer, and the
// review flag is cleared.
func (q *Queue) Correct(ctx context.Context, id, category string) error {
	tx, err := q.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("correct %s: %w", id, err)
	}

	if err := categorize.RecordCorrection(ctx, q.store, tx, category); err != nil {
		return fmt.Errorf("correct %s: %w", id, err)
	}
	if err := q.store.UpdateTransactionReview(ctx, id, false); err != nil {
		return fmt.Errorf("correct %s: %w", id, err)
	}
	q.logger.Debug("Corrected transaction", "id", id, "category", category)
	return nil
}
