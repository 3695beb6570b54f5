package store

import (
	"context"
	"testing"
	"time"
)

func TestCategoryCorrections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	corrections := []CategoryCorrection{
		{Merchant: "Swiggy", OriginalCategory: "Other", CorrectedCategory: "Food", CreatedAt: base},
		{Merchant: "Swiggy", OriginalCategory: "Shopping", CorrectedCategory: "Food", CreatedAt: base.Add(time.Hour)},
		{Merchant: "Uber", OriginalCategory: "Other", CorrectedCategory: "Transport", CreatedAt: base.Add(2 * time.Hour)},
		{Merchant: "Swiggy", Description: "Instamart order", OriginalCategory: "Food", CorrectedCategory: "Shopping", CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, c := range corrections {
		if _, err := s.InsertCategoryCorrection(ctx, c); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	t.Run("by merchant newest first", func(t *testing.T) {
		got, err := s.CorrectionsByMerchant(ctx, "Swiggy", 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 Swiggy corrections, got %d", len(got))
		}
		if got[0].CorrectedCategory != "Shopping" || got[0].Description != "Instamart order" {
			t.Errorf("expected newest correction first, got %+v", got[0])
		}
	})

	t.Run("merchant limit", func(t *testing.T) {
		got, err := s.CorrectionsByMerchant(ctx, "Swiggy", 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected limit of 2, got %d", len(got))
		}
	})

	t.Run("recent across merchants", func(t *testing.T) {
		got, err := s.RecentCorrections(ctx, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 recent corrections, got %d", len(got))
		}
		if got[0].Merchant != "Swiggy" || got[1].Merchant != "Uber" {
			t.Errorf("unexpected recency order: %s, %s", got[0].Merchant, got[1].Merchant)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := s.InsertCategoryCorrection(ctx, CategoryCorrection{CorrectedCategory: "Food"}); err == nil {
			t.Error("expected error for missing merchant")
		}
		if _, err := s.InsertCategoryCorrection(ctx, CategoryCorrection{Merchant: "Swiggy"}); err == nil {
			t.Error("expected error for missing corrected category")
		}
	})
}
