package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestEmail(t *testing.T, s *Store, messageID string) {
	t.Helper()
	_, err := s.InsertRawEmail(context.Background(), RawEmail{
		MessageID: messageID,
		From:      "alerts@hdfcbank.net",
		Subject:   "Transaction alert",
		Date:      time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		BodyText:  "Rs. 500.00 debited from a/c **1234",
	})
	if err != nil {
		t.Fatalf("insert raw email %s: %v", messageID, err)
	}
}

func testTx(id, emailID, merchant string, amount float64, date string) Transaction {
	return Transaction{
		ID:             id,
		EmailMessageID: emailID,
		Date:           date,
		Amount:         amount,
		Currency:       "INR",
		Direction:      DirectionDebit,
		Type:           TypeUPI,
		Merchant:       merchant,
		Account:        "**1234",
		Bank:           "HDFC",
		Source:         SourceRegex,
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	_, rows, err := s.Query(context.Background(), "SELECT id, name FROM migrations ORDER BY id", 0)
	if err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	if len(rows) != len(migrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(migrations), len(rows))
	}
	if rows[0][1] != "initial_schema" {
		t.Errorf("expected first migration initial_schema, got %s", rows[0][1])
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Reopening must not re-apply anything.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()

	_, rows, err = s.Query(context.Background(), "SELECT id FROM migrations", 0)
	if err != nil {
		t.Fatalf("query migrations after reopen: %v", err)
	}
	if len(rows) != len(migrations) {
		t.Errorf("expected %d applied migrations after reopen, got %d", len(migrations), len(rows))
	}
}

func TestOpenPathResolution(t *testing.T) {
	t.Run("env fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "env.db")
		t.Setenv("EXPENSE_TRACKER_DB", path)

		s, err := Open("")
		if err != nil {
			t.Fatalf("open store via env: %v", err)
		}
		defer s.Close()

		if s.Path() != path {
			t.Errorf("expected path %s, got %s", path, s.Path())
		}
	})

	t.Run("no path anywhere", func(t *testing.T) {
		t.Setenv("EXPENSE_TRACKER_DB", "")
		if _, err := Open(""); err == nil {
			t.Fatal("expected error for empty path")
		}
	})
}

func TestInsertRawEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	email := RawEmail{
		MessageID: "msg-1",
		From:      "alerts@icicibank.com",
		Subject:   "UPI transaction",
		Date:      time.Date(2025, 7, 2, 9, 30, 0, 0, time.UTC),
		BodyText:  "INR 250.00 debited via UPI",
		BodyHTML:  "<p>INR 250.00 debited via UPI</p>",
	}

	inserted, err := s.InsertRawEmail(ctx, email)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Error("expected first insert to report a write")
	}

	// Same message id again is silently ignored.
	inserted, err = s.InsertRawEmail(ctx, email)
	if err != nil {
		t.Fatalf("repeat insert: %v", err)
	}
	if inserted {
		t.Error("expected repeat insert to be ignored")
	}

	got, err := s.GetRawEmail(ctx, "msg-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.From != email.From || got.Subject != email.Subject || got.BodyText != email.BodyText {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.BodyHTML != email.BodyHTML {
		t.Errorf("expected body html %q, got %q", email.BodyHTML, got.BodyHTML)
	}
	if !got.Date.Equal(email.Date) {
		t.Errorf("expected date %v, got %v", email.Date, got.Date)
	}
	if got.FetchedAt.IsZero() {
		t.Error("expected fetched_at to be set")
	}

	if _, err := s.GetRawEmail(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertRawEmailsBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertTestEmail(t, s, "msg-1")

	batch := []RawEmail{
		{MessageID: "msg-1", From: "a@b.c", Subject: "s", Date: time.Now().UTC(), BodyText: "x"},
		{MessageID: "msg-2", From: "a@b.c", Subject: "s", Date: time.Now().UTC(), BodyText: "x"},
		{MessageID: "msg-3", From: "a@b.c", Subject: "s", Date: time.Now().UTC(), BodyText: "x"},
	}

	inserted, err := s.InsertRawEmails(ctx, batch)
	if err != nil {
		t.Fatalf("batch insert: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("expected 2 new ids, got %v", inserted)
	}
	if inserted[0] != "msg-2" || inserted[1] != "msg-3" {
		t.Errorf("expected msg-2 and msg-3, got %v", inserted)
	}

	n, err := s.CountRawEmails(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 raw emails, got %d", n)
	}
}

func TestRawEmailIDsWithoutTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertTestEmail(t, s, "msg-parsed")
	insertTestEmail(t, s, "msg-unparsed")

	if _, err := s.InsertTransaction(ctx, testTx("tx-1", "msg-parsed", "Swiggy", 500, "2025-07-01")); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	ids, err := s.RawEmailIDsWithoutTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "msg-unparsed" {
		t.Errorf("expected [msg-unparsed], got %v", ids)
	}
}
