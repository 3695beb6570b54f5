package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const transactionColumns = `id, email_message_id, date, amount, currency, direction, type,
merchant, account, bank, reference, description, category, source, confidence,
needs_review, created_at, updated_at`

// Filter narrows transaction lists. Zero values mean "no constraint";
// NeedsReview is a pointer so false can be filtered on explicitly.
type Filter struct {
	StartDate         string
	EndDate           string
	Type              TxType
	Category          string
	Direction         Direction
	Bank              string
	Source            TxSource
	NeedsReview       *bool
	Uncategorized     bool
	MinAmount         float64
	ExcludeDuplicates bool
	Limit             int
	Offset            int
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any

	if f.StartDate != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, string(f.Direction))
	}
	if f.Bank != "" {
		conds = append(conds, "bank = ?")
		args = append(args, f.Bank)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.NeedsReview != nil {
		conds = append(conds, "needs_review = ?")
		args = append(args, *f.NeedsReview)
	}
	if f.Uncategorized {
		conds = append(conds, "category IS NULL")
	}
	if f.MinAmount > 0 {
		conds = append(conds, "amount >= ?")
		args = append(args, f.MinAmount)
	}
	if f.ExcludeDuplicates {
		conds = append(conds, "id NOT IN (SELECT duplicate_transaction_id FROM duplicate_groups)")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// InsertTransaction stores one transaction. A row matching the
// (email_message_id, amount, merchant, date) key is silently ignored; the
// return reports whether a row was actually written.
func (s *Store) InsertTransaction(ctx context.Context, t Transaction) (bool, error) {
	n, err := s.InsertTransactions(ctx, []Transaction{t})
	return n == 1, err
}

// InsertTransactions stores a batch in one transaction and returns how many
// rows were actually written. Composite-key repeats are skipped without
// error; an invalid entry fails the whole batch before any write.
func (s *Store) InsertTransactions(ctx context.Context, txs []Transaction) (int, error) {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %d of %d: %w", i+1, len(txs), err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert transactions: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert transactions: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	inserted := 0
	for _, t := range txs {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		updatedAt := t.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		currency := t.Currency
		if currency == "" {
			currency = "INR"
		}

		res, err := stmt.ExecContext(ctx,
			t.ID, t.EmailMessageID, t.Date, t.Amount, currency, string(t.Direction), string(t.Type),
			t.Merchant, t.Account, t.Bank, nullIfEmpty(t.Reference), nullIfEmpty(t.Description),
			nullIfEmpty(t.Category), string(t.Source), t.Confidence,
			t.NeedsReview, formatTime(createdAt), formatTime(updatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert transactions: %w", err)
	}
	return inserted, nil
}

// GetTransaction fetches one transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// FindTransactionsByPrefix returns transactions whose id starts with the
// prefix, for short-id lookups from the command line.
func (s *Store) FindTransactionsByPrefix(ctx context.Context, prefix string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id LIKE ? || '%' LIMIT 10", prefix)
	if err != nil {
		return nil, fmt.Errorf("find transactions by prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ListTransactions returns transactions matching the filter, newest date
// first.
func (s *Store) ListTransactions(ctx context.Context, f Filter) ([]Transaction, error) {
	where, args := f.where()
	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY date DESC, created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTransactions returns the number of transactions matching the filter.
func (s *Store) CountTransactions(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// UpdateTransactionCategory sets the category and refreshes updated_at.
func (s *Store) UpdateTransactionCategory(ctx context.Context, id, category string) error {
	return s.updateTransaction(ctx, id, "category = ?", nullIfEmpty(category))
}

// UpdateTransactionMerchant sets the merchant and refreshes updated_at.
func (s *Store) UpdateTransactionMerchant(ctx context.Context, id, merchant string) error {
	return s.updateTransaction(ctx, id, "merchant = ?", merchant)
}

// UpdateTransactionReview sets the review flag and refreshes updated_at.
func (s *Store) UpdateTransactionReview(ctx context.Context, id string, needsReview bool) error {
	return s.updateTransaction(ctx, id, "needs_review = ?", needsReview)
}

func (s *Store) updateTransaction(ctx context.Context, id, set string, value any) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET "+set+", updated_at = ? WHERE id = ?",
		value, formatTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReviewQueue returns transactions flagged for review, oldest date first so
// the queue is worked in arrival order. Source narrows to one pipeline tier
// when non-empty.
func (s *Store) ReviewQueue(ctx context.Context, source TxSource) ([]Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE needs_review = 1"
	var args []any
	if source != "" {
		query += " AND source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY date, created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("review queue: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountReviewQueue returns the number of transactions awaiting review.
func (s *Store) CountReviewQueue(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE needs_review = 1").Scan(&n); err != nil {
		return 0, fmt.Errorf("count review queue: %w", err)
	}
	return n, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (Transaction, error) {
	var t Transaction
	var reference, description, category sql.NullString
	var confidence sql.NullFloat64
	var createdAt, updatedAt string

	err := sc.Scan(&t.ID, &t.EmailMessageID, &t.Date, &t.Amount, &t.Currency, &t.Direction, &t.Type,
		&t.Merchant, &t.Account, &t.Bank, &reference, &description, &category, &t.Source,
		&confidence, &t.NeedsReview, &createdAt, &updatedAt)
	if err != nil {
		return Transaction{}, err
	}

	t.Reference = reference.String
	t.Description = description.String
	t.Category = category.String
	if confidence.Valid {
		c := confidence.Float64
		t.Confidence = &c
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}
