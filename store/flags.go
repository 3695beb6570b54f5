package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertEvalFlag appends a verdict on a transaction and returns its id.
// The transaction must exist.
func (s *Store) InsertEvalFlag(ctx context.Context, f EvalFlag) (int64, error) {
	if f.TransactionID == "" {
		return 0, fmt.Errorf("eval flag: transaction id is required")
	}
	if !f.Verdict.Valid() {
		return 0, fmt.Errorf("eval flag: invalid verdict %q", f.Verdict)
	}
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO eval_flags (transaction_id, verdict, notes, created_at)
VALUES (?, ?, ?, ?)`,
		f.TransactionID, string(f.Verdict), nullIfEmpty(f.Notes), formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert eval flag for %s: %w", f.TransactionID, err)
	}
	return res.LastInsertId()
}

// ListEvalFlags returns flags, optionally narrowed to one transaction,
// oldest first.
func (s *Store) ListEvalFlags(ctx context.Context, transactionID string) ([]EvalFlag, error) {
	query := "SELECT id, transaction_id, verdict, notes, created_at FROM eval_flags"
	var args []any
	if transactionID != "" {
		query += " WHERE transaction_id = ?"
		args = append(args, transactionID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eval flags: %w", err)
	}
	defer rows.Close()

	var out []EvalFlag
	for rows.Next() {
		var f EvalFlag
		var notes sql.NullString
		var createdAt string
		if err := rows.Scan(&f.ID, &f.TransactionID, &f.Verdict, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan eval flag: %w", err)
		}
		f.Notes = notes.String
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
