package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DuplicatePair is a candidate pair for duplicate confirmation. Earlier is
// the transaction with the smaller id; if confirmed, Later is marked as the
// duplicate.
type DuplicatePair struct {
	Earlier Transaction
	Later   Transaction
}

// DuplicatePairs returns candidate pairs: same amount and direction, from
// different emails, dated within toleranceDays of each other, and not
// already resolved. When newIDs is non-empty, at least one side of each
// pair must be in it, so a sync pass only judges pairs it could have
// introduced.
func (s *Store) DuplicatePairs(ctx context.Context, toleranceDays int, newIDs []string) ([]DuplicatePair, error) {
	query := `
SELECT t1.id, t2.id
FROM transactions t1
JOIN transactions t2
  ON t1.amount = t2.amount
 AND t1.direction = t2.direction
 AND t1.id < t2.id
 AND t1.email_message_id != t2.email_message_id
 AND ABS(julianday(t1.date) - julianday(t2.date)) <= ?
WHERE t1.id NOT IN (SELECT duplicate_transaction_id FROM duplicate_groups)
  AND t2.id NOT IN (SELECT duplicate_transaction_id FROM duplicate_groups)`
	args := []any{toleranceDays}

	if len(newIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(newIDs)), ",")
		query += fmt.Sprintf(" AND (t1.id IN (%s) OR t2.id IN (%s))", placeholders, placeholders)
		for i := 0; i < 2; i++ {
			for _, id := range newIDs {
				args = append(args, id)
			}
		}
	}
	query += " ORDER BY t1.id, t2.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duplicate candidates: %w", err)
	}
	defer rows.Close()

	type idPair struct{ a, b string }
	var idPairs []idPair
	for rows.Next() {
		var p idPair
		if err := rows.Scan(&p.a, &p.b); err != nil {
			return nil, fmt.Errorf("scan duplicate candidate: %w", err)
		}
		idPairs = append(idPairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pairs := make([]DuplicatePair, 0, len(idPairs))
	for _, p := range idPairs {
		earlier, err := s.GetTransaction(ctx, p.a)
		if err != nil {
			return nil, err
		}
		later, err := s.GetTransaction(ctx, p.b)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, DuplicatePair{Earlier: earlier, Later: later})
	}
	return pairs, nil
}

// MarkAsDuplicate records duplicateID as a duplicate of keptID and flags it
// for review. A transaction already recorded as a duplicate is left alone;
// the return reports whether a new group was written.
func (s *Store) MarkAsDuplicate(ctx context.Context, duplicateID, keptID, reason string, confidence *float64) (bool, error) {
	if duplicateID == keptID {
		return false, fmt.Errorf("transaction %s cannot be a duplicate of itself", duplicateID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin mark duplicate: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO duplicate_groups (kept_transaction_id, duplicate_transaction_id, reason, confidence, created_at)
VALUES (?, ?, ?, ?, ?)`,
		keptID, duplicateID, reason, confidence, formatTime(nowUTC()))
	if err != nil {
		return false, fmt.Errorf("mark %s duplicate of %s: %w", duplicateID, keptID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET needs_review = 1, updated_at = ? WHERE id = ?",
		formatTime(nowUTC()), duplicateID); err != nil {
		return false, fmt.Errorf("flag duplicate %s for review: %w", duplicateID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit mark duplicate: %w", err)
	}
	return true, nil
}

// ListDuplicateGroups returns all recorded duplicate groups, oldest first.
func (s *Store) ListDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kept_transaction_id, duplicate_transaction_id, reason, confidence, created_at
FROM duplicate_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list duplicate groups: %w", err)
	}
	defer rows.Close()

	var out []DuplicateGroup
	for rows.Next() {
		var g DuplicateGroup
		var confidence sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&g.ID, &g.KeptTransactionID, &g.DuplicateTransactionID, &g.Reason, &confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		if confidence.Valid {
			c := confidence.Float64
			g.Confidence = &c
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CountDuplicates returns the number of transactions marked as duplicates.
func (s *Store) CountDuplicates(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM duplicate_groups").Scan(&n); err != nil {
		return 0, fmt.Errorf("count duplicates: %w", err)
	}
	return n, nil
}
