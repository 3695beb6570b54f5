package store

import (
	"context"
	"fmt"
	"testing"
)

func TestQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertTestEmail(t, s, "msg-1")
	for i := 0; i < 5; i++ {
		tx := testTx(fmt.Sprintf("tx-%d", i), "msg-1", fmt.Sprintf("Shop %d", i), 100.50+float64(i), "2025-07-01")
		if _, err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	t.Run("columns and values", func(t *testing.T) {
		cols, rows, err := s.Query(ctx, "SELECT merchant, amount FROM transactions ORDER BY amount", 0)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(cols) != 2 || cols[0] != "merchant" || cols[1] != "amount" {
			t.Fatalf("unexpected columns: %v", cols)
		}
		if len(rows) != 5 {
			t.Fatalf("expected 5 rows, got %d", len(rows))
		}
		if rows[0][0] != "Shop 0" || rows[0][1] != "100.5" {
			t.Errorf("unexpected first row: %v", rows[0])
		}
	})

	t.Run("row cap", func(t *testing.T) {
		_, rows, err := s.Query(ctx, "SELECT id FROM transactions", 3)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(rows) != 3 {
			t.Errorf("expected cap of 3 rows, got %d", len(rows))
		}
	})

	t.Run("aggregate", func(t *testing.T) {
		cols, rows, err := s.Query(ctx, "SELECT COUNT(*) AS n FROM transactions", 100)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if cols[0] != "n" || rows[0][0] != "5" {
			t.Errorf("unexpected aggregate result: %v %v", cols, rows)
		}
	})

	t.Run("null renders empty", func(t *testing.T) {
		_, rows, err := s.Query(ctx, "SELECT category FROM transactions LIMIT 1", 0)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if rows[0][0] != "" {
			t.Errorf("expected empty string for NULL, got %q", rows[0][0])
		}
	})

	t.Run("bad sql surfaces", func(t *testing.T) {
		if _, _, err := s.Query(ctx, "SELECT FROM nothing", 0); err == nil {
			t.Error("expected error for invalid SQL")
		}
	})
}
