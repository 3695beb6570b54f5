package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Sync state keys.
const (
	KeyLastSyncTimestamp = "last_sync_timestamp"
	KeyLastMessageID     = "last_message_id"
	KeyTotalSyncedCount  = "total_synced_count"
)

// GetSyncState reads one sync state value. Missing keys return ErrNotFound.
func (s *Store) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync state %s: %w", key, err)
	}
	return value, nil
}

// SetSyncState upserts one sync state value.
func (s *Store) SetSyncState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sync_state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("set sync state %s: %w", key, err)
	}
	return nil
}

// LastSyncTime returns when the most recent ingestion started listing
// messages, or the zero time when no sync has run.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	value, err := s.GetSyncState(ctx, KeyLastSyncTimestamp)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync timestamp %q: %w", value, err)
	}
	return t, nil
}

// SetLastSyncTime records when an ingestion started listing messages.
func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.SetSyncState(ctx, KeyLastSyncTimestamp, formatTime(t))
}

// LastMessageID returns the provider id of the newest message seen, or ""
// when no sync has run.
func (s *Store) LastMessageID(ctx context.Context) (string, error) {
	value, err := s.GetSyncState(ctx, KeyLastMessageID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}

// SetLastMessageID records the provider id of the newest message seen.
func (s *Store) SetLastMessageID(ctx context.Context, id string) error {
	return s.SetSyncState(ctx, KeyLastMessageID, id)
}

// TotalSyncedCount returns the lifetime count of raw emails ingested.
func (s *Store) TotalSyncedCount(ctx context.Context) (int64, error) {
	value, err := s.GetSyncState(ctx, KeyTotalSyncedCount)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse total synced count %q: %w", value, err)
	}
	return n, nil
}

// IncrementSyncedCount adds n to the lifetime ingestion counter and returns
// the new total. The counter only moves forward.
func (s *Store) IncrementSyncedCount(ctx context.Context, n int) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("synced count increment must not be negative, got %d", n)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sync_state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = CAST(CAST(sync_state.value AS INTEGER) + CAST(excluded.value AS INTEGER) AS TEXT),
	updated_at = excluded.updated_at`,
		KeyTotalSyncedCount, strconv.Itoa(n), formatTime(nowUTC()))
	if err != nil {
		return 0, fmt.Errorf("increment synced count: %w", err)
	}

	return s.TotalSyncedCount(ctx)
}
