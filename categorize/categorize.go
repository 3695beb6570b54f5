// Package categorize assigns spending categories to transactions using the
// model, steered by the user's past corrections.
package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

const (
	// DefaultCorrectionLimit caps the correction examples included in a
	// prompt.
	DefaultCorrectionLimit = 10

	// DefaultBatchSize is the number of transactions categorized per model
	// call.
	DefaultBatchSize = 20

	// FallbackCategory is assigned when the model fails or returns a
	// category outside the configured set.
	FallbackCategory = "Other"
)

// Result is one category assignment. It doubles as the model's JSON
// response shape.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Categorizer assigns categories from the closed configured set.
type Categorizer struct {
	client          llm.Invoker
	store           *store.Store
	categories      config.CategoriesConfig
	correctionLimit int
	batchSize       int
	logger          *slog.Logger
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithCorrectionLimit caps correction examples per prompt.
func WithCorrectionLimit(n int) Option {
	return func(c *Categorizer) {
		c.correctionLimit = n
	}
}

// WithBatchSize sets the transactions per model call.
func WithBatchSize(n int) Option {
	return func(c *Categorizer) {
		c.batchSize = n
	}
}

// WithLogger sets the categorizer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Categorizer) {
		c.logger = logger
	}
}

// New creates a Categorizer over the given model client and store.
func New(client llm.Invoker, st *store.Store, categories config.CategoriesConfig, opts ...Option) *Categorizer {
	c := &Categorizer{
		client:          client,
		store:           st,
		categories:      categories,
		correctionLimit: DefaultCorrectionLimit,
		batchSize:       DefaultBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Assign categorizes a single transaction. Model failures and categories
// outside the configured set degrade to {Other, 0}; Assign never fails.
func (c *Categorizer) Assign(ctx context.Context, tx store.Transaction) Result {
	corrections, err := c.corrections(ctx, tx.Merchant)
	if err != nil {
		c.logger.Warn("Loading corrections failed", "merchant", tx.Merchant, "error", err)
	}

	prompt := fmt.Sprintf(categorizePrompt,
		c.categoryBlock(), correctionBlock(corrections), transactionLine(tx))

	var resp Result
	if err := c.client.RunJSON(ctx, prompt, &resp); err != nil {
		c.logger.Warn("Categorization failed", "transaction", tx.ID, "error", err)
		return Result{Category: FallbackCategory, Confidence: 0}
	}
	return c.normalize(resp)
}

type batchResponse struct {
	Categories []Result `json:"categories"`
}

// AssignBatch categorizes transactions in one model call. When the model
// returns the wrong number of entries, or fails outright, each
// transaction is retried individually.
func (c *Categorizer) AssignBatch(ctx context.Context, txs []store.Transaction) []Result {
	if len(txs) == 0 {
		return nil
	}
	if len(txs) == 1 {
		return []Result{c.Assign(ctx, txs[0])}
	}

	corrections, err := c.batchCorrections(ctx, txs)
	if err != nil {
		c.logger.Warn("Loading corrections failed", "error", err)
	}

	var lines strings.Builder
	for i, tx := range txs {
		fmt.Fprintf(&lines, "%d. %s\n", i+1, transactionLine(tx))
	}
	prompt := fmt.Sprintf(categorizeBatchPrompt,
		c.categoryBlock(), correctionBlock(corrections), strings.TrimRight(lines.String(), "\n"))

	var resp batchResponse
	if err := c.client.RunJSON(ctx, prompt, &resp); err != nil {
		c.logger.Warn("Batch categorization failed, retrying individually", "size", len(txs), "error", err)
		return c.assignEach(ctx, txs)
	}
	if len(resp.Categories) != len(txs) {
		c.logger.Warn("Batch answer count mismatch, retrying individually",
			"want", len(txs), "got", len(resp.Categories))
		return c.assignEach(ctx, txs)
	}

	out := make([]Result, len(txs))
	for i, r := range resp.Categories {
		out[i] = c.normalize(r)
	}
	return out
}

// CategorizePending assigns a category to every transaction that has
// none, in batches. Returns the number of transactions updated.
func (c *Categorizer) CategorizePending(ctx context.Context) (int, error) {
	txs, err := c.store.ListTransactions(ctx, store.Filter{Uncategorized: true})
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}

	updated := 0
	for start := 0; start < len(txs); start += c.batchSize {
		batch := txs[start:min(start+c.batchSize, len(txs))]
		for i, res := range c.AssignBatch(ctx, batch) {
			if err := c.store.UpdateTransactionCategory(ctx, batch[i].ID, res.Category); err != nil {
				return updated, fmt.Errorf("updating category for %s: %w", batch[i].ID, err)
			}
			updated++
		}
	}
	c.logger.Info("Categorized transactions", "count", updated)
	return updated, nil
}

// RecordCorrection applies a user recategorization: the transaction's
// category is updated and an append-only correction row is written so
// later prompts for the same merchant carry the user's answer.
func RecordCorrection(ctx context.Context, st *store.Store, tx store.Transaction, corrected string) error {
	original := tx.Category
	if original == "" {
		original = FallbackCategory
	}

	if err := st.UpdateTransactionCategory(ctx, tx.ID, corrected); err != nil {
		return err
	}
	_, err := st.InsertCategoryCorrection(ctx, store.CategoryCorrection{
		Merchant:          tx.Merchant,
		Description:       tx.Description,
		OriginalCategory:  original,
		CorrectedCategory: corrected,
	})
	return err
}

func (c *Categorizer) assignEach(ctx context.Context, txs []store.Transaction) []Result {
	out := make([]Result, len(txs))
	for i, tx := range txs {
		out[i] = c.Assign(ctx, tx)
	}
	return out
}

// corrections returns prompt examples for one merchant: that merchant's
// corrections first, backfilled with recent corrections for other
// merchants up to the limit.
func (c *Categorizer) corrections(ctx context.Context, merchant string) ([]store.CategoryCorrection, error) {
	out, err := c.store.CorrectionsByMerchant(ctx, merchant, c.correctionLimit)
	if err != nil {
		return nil, err
	}
	if len(out) >= c.correctionLimit {
		return out, nil
	}

	recent, err := c.store.RecentCorrections(ctx, c.correctionLimit)
	if err != nil {
		return out, err
	}
	seen := make(map[int64]bool, len(out))
	for _, cor := range out {
		seen[cor.ID] = true
	}
	for _, cor := range recent {
		if len(out) >= c.correctionLimit {
			break
		}
		if !seen[cor.ID] {
			out = append(out, cor)
			seen[cor.ID] = true
		}
	}
	return out, nil
}

// batchCorrections unions per-merchant corrections so every merchant in
// the batch keeps its own examples in the prompt.
func (c *Categorizer) batchCorrections(ctx context.Context, txs []store.Transaction) ([]store.CategoryCorrection, error) {
	var out []store.CategoryCorrection
	seen := make(map[int64]bool)
	merchants := make(map[string]bool)
	for _, tx := range txs {
		if merchants[tx.Merchant] {
			continue
		}
		merchants[tx.Merchant] = true
		cors, err := c.store.CorrectionsByMerchant(ctx, tx.Merchant, c.correctionLimit)
		if err != nil {
			return out, err
		}
		for _, cor := range cors {
			if !seen[cor.ID] {
				out = append(out, cor)
				seen[cor.ID] = true
			}
		}
	}
	return out, nil
}

func (c *Categorizer) categoryBlock() string {
	var b strings.Builder
	for _, name := range c.categories.List {
		if desc := c.categories.Descriptions[name]; desc != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, desc)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func correctionBlock(corrections []store.CategoryCorrection) string {
	if len(corrections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCorrections the user made earlier:\n")
	for _, cor := range corrections {
		if cor.OriginalCategory != "" {
			fmt.Fprintf(&b, "- %s is %q, not %q", cor.Merchant, cor.CorrectedCategory, cor.OriginalCategory)
		} else {
			fmt.Fprintf(&b, "- %s is %q", cor.Merchant, cor.CorrectedCategory)
		}
		if cor.Description != "" {
			fmt.Fprintf(&b, " (%s)", cor.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func transactionLine(tx store.Transaction) string {
	line := fmt.Sprintf("%s | %s | %s | %s %.2f | %s",
		tx.Merchant, tx.Type, tx.Direction, tx.Currency, tx.Amount, tx.Date)
	if tx.Description != "" {
		line += " | " + tx.Description
	}
	return line
}

// normalize maps the model's answer onto the configured set. A category
// outside the set becomes Other with zero confidence.
func (c *Categorizer) normalize(r Result) Result {
	name := strings.TrimSpace(r.Category)
	for _, cat := range c.categories.List {
		if strings.EqualFold(cat, name) {
			return Result{Category: cat, Confidence: math.Min(1, math.Max(0, r.Confidence))}
		}
	}
	return Result{Category: FallbackCategory, Confidence: 0}
}
