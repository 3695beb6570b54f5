// Package dedup finds transactions reported by more than one notification
// email and resolves them to a single ledger row.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

// DefaultDateToleranceDays bounds how far apart two notifications for the
// same underlying transaction may be dated.
const DefaultDateToleranceDays = 1

// duplicatePrompt is the pairwise judgment template. The %s placeholders
// are the two transaction blocks.
const duplicatePrompt = `You are checking whether two bank notification emails describe the same real-world transaction.

Rules:

1. Duplicates happen when one purchase produces two alerts, for example from the bank and from the card network.
2. Matching amount alone is not enough; weigh merchant, account, reference and dates together.
3. Different reference numbers usually mean genuinely distinct transactions.
4. Set confidence between 0.0 and 1.0.

Transaction A:
%s

Transaction B:
%s

Respond with JSON only:
{"isDuplicate":false,"confidence":0.0}`

// Result summarizes one dedup pass.
type Result struct {
	PairsChecked    int
	DuplicatesFound int
}

type verdict struct {
	IsDuplicate bool     `json:"isDuplicate"`
	Confidence  *float64 `json:"confidence"`
}

// Engine confirms candidate pairs with the model and records resolved
// duplicates.
type Engine struct {
	client        llm.Invoker
	store         *store.Store
	toleranceDays int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDateTolerance sets the candidate date window in days.
func WithDateTolerance(days int) Option {
	return func(e *Engine) {
		e.toleranceDays = days
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a dedup engine over the given model client and store.
func New(client llm.Invoker, st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		client:        client,
		store:         st,
		toleranceDays: DefaultDateToleranceDays,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run checks candidate pairs and marks confirmed duplicates. The earlier
// transaction of a pair is kept; the later one is recorded as its
// duplicate and flagged for review. A non-nil newIDs restricts candidates
// to pairs touching those transactions. Safe to re-run: resolved pairs
// stop being candidates.
func (e *Engine) Run(ctx context.Context, newIDs []string) (Result, error) {
	pairs, err := e.store.DuplicatePairs(ctx, e.toleranceDays, newIDs)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, pair := range pairs {
		res.PairsChecked++

		v, err := e.judge(ctx, pair)
		if err != nil {
			e.logger.Warn("Duplicate judgment failed",
				"kept", pair.Earlier.ID,
				"candidate", pair.Later.ID,
				"error", err)
			continue
		}
		if !v.IsDuplicate {
			continue
		}

		reason := fmt.Sprintf("matching %s %s %.2f within %d day(s)",
			pair.Earlier.Direction, pair.Earlier.Currency, pair.Earlier.Amount, e.toleranceDays)
		marked, err := e.store.MarkAsDuplicate(ctx, pair.Later.ID, pair.Earlier.ID, reason, v.Confidence)
		if err != nil {
			return res, err
		}
		if marked {
			res.DuplicatesFound++
			e.logger.Info("Marked duplicate",
				"kept", pair.Earlier.ID,
				"duplicate", pair.Later.ID)
		}
	}
	return res, nil
}

func (e *Engine) judge(ctx context.Context, pair store.DuplicatePair) (verdict, error) {
	prompt := fmt.Sprintf(duplicatePrompt,
		transactionBlock(pair.Earlier), transactionBlock(pair.Later))

	var v verdict
	if err := e.client.RunJSON(ctx, prompt, &v); err != nil {
		return verdict{}, err
	}
	if v.Confidence != nil {
		clamped := min(1, max(0, *v.Confidence))
		v.Confidence = &clamped
	}
	return v, nil
}

func transactionBlock(tx store.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Merchant: %s\n", tx.Merchant)
	fmt.Fprintf(&b, "Amount: %s %.2f\n", tx.Currency, tx.Amount)
	fmt.Fprintf(&b, "Direction: %s\n", tx.Direction)
	fmt.Fprintf(&b, "Type: %s\n", tx.Type)
	fmt.Fprintf(&b, "Date: %s", tx.Date)
	if tx.Account != "" {
		fmt.Fprintf(&b, "\nAccount: %s", tx.Account)
	}
	if tx.Bank != "" {
		fmt.Fprintf(&b, "\nBank: %s", tx.Bank)
	}
	if tx.Reference != "" {
		fmt.Fprintf(&b, "\nReference: %s", tx.Reference)
	}
	if tx.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", tx.Description)
	}
	return b.String()
}
