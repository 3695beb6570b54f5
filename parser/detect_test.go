package parser

import (
	"testing"
	"time"

	"github.com/c360studio/expense-tracker/store"
)

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want store.Direction
	}{
		{"debited", "Rs. 500.00 has been debited from your account", store.DirectionDebit},
		{"credited", "Rs. 500.00 has been credited to your account", store.DirectionCredit},
		{"refund", "Refund of Rs. 200 has been processed", store.DirectionCredit},
		{"cashback", "You earned cashback of ₹50 on this purchase", store.DirectionCredit},
		{"deposited", "Rs. 10,000 deposited to A/c XX1234", store.DirectionCredit},
		{"reversed", "The failed transaction has been reversed", store.DirectionCredit},
		{"received", "You have received Rs. 900 via UPI", store.DirectionCredit},
		{"credit card spend stays debit", "Your HDFC Bank Credit Card ending 1234 was used for Rs. 500 at AMAZON", store.DirectionDebit},
		{"plain spend", "Thank you for using your card at BIG BAZAAR", store.DirectionDebit},
		{"empty", "", store.DirectionDebit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDirection(tt.text)
			if got != tt.want {
				t.Errorf("DetectDirection(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name  string
		email store.RawEmail
		want  string
	}{
		{"from address", store.RawEmail{From: "alerts@hdfcbank.net"}, "HDFC"},
		{"subject", store.RawEmail{Subject: "ICICI Bank Transaction Alert"}, "ICICI"},
		{"body", store.RawEmail{BodyText: "Thank you for banking with Axis Bank."}, "Axis"},
		{"state bank long form", store.RawEmail{BodyText: "State Bank of India credit alert"}, "SBI"},
		{"sbi word", store.RawEmail{Subject: "SBI Card statement"}, "SBI"},
		{"sbi not matched inside words", store.RawEmail{BodyText: "subsbidiary report"}, ""},
		{"kotak", store.RawEmail{From: "noreply@kotak.com"}, "Kotak"},
		{"idfc", store.RawEmail{Subject: "IDFC FIRST Bank alert"}, "IDFC"},
		{"yes bank", store.RawEmail{BodyText: "YES BANK account update"}, "Yes Bank"},
		{"punjab national", store.RawEmail{BodyText: "Punjab National Bank e-statement"}, "PNB"},
		{"bank of baroda", store.RawEmail{BodyText: "Bank of Baroda alert"}, "BOB"},
		{"federal", store.RawEmail{From: "alerts@federalbank.co.in", BodyText: "Federal Bank alert"}, "Federal"},
		{"unknown", store.RawEmail{From: "billing@netflix.com", Subject: "Your receipt"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBank(tt.email)
			if got != tt.want {
				t.Errorf("DetectBank() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectAccount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"masked x", "debited from your A/c XX1234 on 01-07-25", "**1234"},
		{"masked stars", "Card *9999 was used", "**9999"},
		{"ending in", "your card ending in 5678", "**5678"},
		{"account with mask run", "Account No. XXXXXX4321 credited", "**4321"},
		{"three digit tail", "A/c X321 debited", "**321"},
		{"no account", "Your OTP is 482913", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectAccount(tt.text)
			if got != tt.want {
				t.Errorf("DetectAccount(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-07-01", "2025-07-01", true},
		{"01-07-2025", "2025-07-01", true},
		{"1/7/2025", "2025-07-01", true},
		{"01-07-25", "2025-07-01", true},
		{"1/7/25", "2025-07-01", true},
		{"01-Jul-2025", "2025-07-01", true},
		{"3-Aug-25", "2025-08-03", true},
		{"3 Aug 2025", "2025-08-03", true},
		{"Aug 3, 2025", "2025-08-03", true},
		{"99-99-99", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractDate(t *testing.T) {
	emailDate := time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

	t.Run("body date wins", func(t *testing.T) {
		email := store.RawEmail{
			Date:     emailDate,
			BodyText: "Rs. 500 debited on 02-07-25 via UPI",
		}
		if got := ExtractDate(email); got != "2025-07-02" {
			t.Errorf("ExtractDate() = %q, want 2025-07-02", got)
		}
	})

	t.Run("falls back to email date", func(t *testing.T) {
		email := store.RawEmail{
			Date:     emailDate,
			BodyText: "Rs. 500 debited via UPI",
		}
		if got := ExtractDate(email); got != "2025-07-10" {
			t.Errorf("ExtractDate() = %q, want 2025-07-10", got)
		}
	})

	t.Run("unparseable body date falls back", func(t *testing.T) {
		email := store.RawEmail{
			Date:     emailDate,
			BodyText: "Rs. 500 debited on 99-99-99",
		}
		if got := ExtractDate(email); got != "2025-07-10" {
			t.Errorf("ExtractDate() = %q, want 2025-07-10", got)
		}
	})
}
