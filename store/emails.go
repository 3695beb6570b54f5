package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertRawEmail stores one raw email. A message id seen before is silently
// ignored; the return reports whether a row was actually written.
func (s *Store) InsertRawEmail(ctx context.Context, e RawEmail) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	if e.FetchedAt.IsZero() {
		e.FetchedAt = nowUTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO raw_emails (message_id, from_addr, subject, date, body_text, body_html, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, e.From, e.Subject, formatTime(e.Date), e.BodyText, nullIfEmpty(e.BodyHTML), formatTime(e.FetchedAt))
	if err != nil {
		return false, fmt.Errorf("insert raw email %s: %w", e.MessageID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertRawEmails stores a batch in one transaction and returns the message
// ids actually inserted. Previously seen ids are skipped without error.
func (s *Store) InsertRawEmails(ctx context.Context, emails []RawEmail) ([]string, error) {
	for _, e := range emails {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert raw emails: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO raw_emails (message_id, from_addr, subject, date, body_text, body_html, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert raw emails: %w", err)
	}
	defer stmt.Close()

	var inserted []string
	for _, e := range emails {
		fetchedAt := e.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = nowUTC()
		}
		res, err := stmt.ExecContext(ctx,
			e.MessageID, e.From, e.Subject, formatTime(e.Date), e.BodyText, nullIfEmpty(e.BodyHTML), formatTime(fetchedAt))
		if err != nil {
			return nil, fmt.Errorf("insert raw email %s: %w", e.MessageID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			inserted = append(inserted, e.MessageID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert raw emails: %w", err)
	}
	return inserted, nil
}

// GetRawEmail fetches one raw email by message id.
func (s *Store) GetRawEmail(ctx context.Context, messageID string) (RawEmail, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT message_id, from_addr, subject, date, body_text, body_html, fetched_at
FROM raw_emails WHERE message_id = ?`, messageID)

	e, err := scanRawEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RawEmail{}, ErrNotFound
	}
	if err != nil {
		return RawEmail{}, fmt.Errorf("get raw email %s: %w", messageID, err)
	}
	return e, nil
}

// ListRawEmailIDs returns all stored message ids in fetch order.
func (s *Store) ListRawEmailIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, "SELECT message_id FROM raw_emails ORDER BY fetched_at, message_id")
}

// RawEmailIDsWithoutTransactions returns message ids that produced no
// transactions, the candidates for a reparse pass.
func (s *Store) RawEmailIDsWithoutTransactions(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `
SELECT e.message_id FROM raw_emails e
WHERE NOT EXISTS (SELECT 1 FROM transactions t WHERE t.email_message_id = e.message_id)
ORDER BY e.fetched_at, e.message_id`)
}

// CountRawEmails returns the number of stored raw emails.
func (s *Store) CountRawEmails(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_emails").Scan(&n); err != nil {
		return 0, fmt.Errorf("count raw emails: %w", err)
	}
	return n, nil
}

func (s *Store) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRawEmail(row *sql.Row) (RawEmail, error) {
	var e RawEmail
	var date, fetchedAt string
	var bodyHTML sql.NullString

	if err := row.Scan(&e.MessageID, &e.From, &e.Subject, &date, &e.BodyText, &bodyHTML, &fetchedAt); err != nil {
		return RawEmail{}, err
	}

	var err error
	if e.Date, err = parseTime(date); err != nil {
		return RawEmail{}, fmt.Errorf("parse date: %w", err)
	}
	if e.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return RawEmail{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	e.BodyHTML = bodyHTML.String
	return e, nil
}

// nullIfEmpty maps "" to NULL for optional text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
