package store

import (
	"context"
	"testing"
)

func TestEvalFlags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertTestEmail(t, s, "msg-1")
	if _, err := s.InsertTransaction(ctx, testTx("tx-1", "msg-1", "Swiggy", 500, "2025-07-01")); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	if _, err := s.InsertEvalFlag(ctx, EvalFlag{TransactionID: "tx-1", Verdict: VerdictCorrect}); err != nil {
		t.Fatalf("insert flag: %v", err)
	}
	if _, err := s.InsertEvalFlag(ctx, EvalFlag{TransactionID: "tx-1", Verdict: VerdictWrong, Notes: "amount is the annual fee, not a purchase"}); err != nil {
		t.Fatalf("insert flag with notes: %v", err)
	}

	flags, err := s.ListEvalFlags(ctx, "tx-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[0].Verdict != VerdictCorrect || flags[1].Verdict != VerdictWrong {
		t.Errorf("unexpected verdicts: %+v", flags)
	}
	if flags[1].Notes != "amount is the annual fee, not a purchase" {
		t.Errorf("notes not preserved: %q", flags[1].Notes)
	}

	t.Run("invalid verdict", func(t *testing.T) {
		if _, err := s.InsertEvalFlag(ctx, EvalFlag{TransactionID: "tx-1", Verdict: "maybe"}); err == nil {
			t.Error("expected error for invalid verdict")
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		if _, err := s.InsertEvalFlag(ctx, EvalFlag{TransactionID: "missing", Verdict: VerdictCorrect}); err == nil {
			t.Error("expected foreign key error")
		}
	})
}
