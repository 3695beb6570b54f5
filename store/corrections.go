package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertCategoryCorrection appends a correction and returns its id.
func (s *Store) InsertCategoryCorrection(ctx context.Context, c CategoryCorrection) (int64, error) {
	if c.Merchant == "" {
		return 0, fmt.Errorf("category correction: merchant is required")
	}
	if c.CorrectedCategory == "" {
		return 0, fmt.Errorf("category correction: corrected category is required")
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO category_corrections (merchant, description, original_category, corrected_category, created_at)
VALUES (?, ?, ?, ?, ?)`,
		c.Merchant, nullIfEmpty(c.Description), c.OriginalCategory, c.CorrectedCategory, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert category correction: %w", err)
	}
	return res.LastInsertId()
}

// CorrectionsByMerchant returns the most recent corrections for one
// merchant, newest first.
func (s *Store) CorrectionsByMerchant(ctx context.Context, merchant string, limit int) ([]CategoryCorrection, error) {
	return s.listCorrections(ctx, `
SELECT id, merchant, description, original_category, corrected_category, created_at
FROM category_corrections WHERE merchant = ?
ORDER BY created_at DESC, id DESC LIMIT ?`, merchant, limit)
}

// RecentCorrections returns the most recent corrections across all
// merchants, newest first.
func (s *Store) RecentCorrections(ctx context.Context, limit int) ([]CategoryCorrection, error) {
	return s.listCorrections(ctx, `
SELECT id, merchant, description, original_category, corrected_category, created_at
FROM category_corrections
ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (s *Store) listCorrections(ctx context.Context, query string, args ...any) ([]CategoryCorrection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	var out []CategoryCorrection
	for rows.Next() {
		var c CategoryCorrection
		var description sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Merchant, &description, &c.OriginalCategory, &c.CorrectedCategory, &createdAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.Description = description.String
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
