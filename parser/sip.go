package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/store"
)

var (
	// fundPattern catches the scheme name, e.g. "in HDFC Mid-Cap
	// Opportunities Fund - Direct Growth (Folio ...)".
	fundPattern = regexp.MustCompile(`(?i)\b(?:in|towards|for)\s+([A-Za-z][A-Za-z0-9 &.\-]*Fund[A-Za-z0-9 &.\-]*?)(?:\s*\(|\s+on\b|\s+has\b|\.\s|\.$|,|\n)`)

	folioPattern = regexp.MustCompile(`(?i)folio\s*(?:no\.?|number)?\s*[:\s]?\s*([0-9][0-9/ ]{4,18}[0-9])`)
)

type sipParser struct{}

// NewSIPParser parses mutual fund SIP confirmations.
func NewSIPParser() Parser {
	return sipParser{}
}

func (sipParser) Name() string {
	return "sip"
}

func (sipParser) CanParse(email store.RawEmail) bool {
	text := strings.ToLower(email.From + "\n" + email.Subject + "\n" + email.BodyText)
	return strings.Contains(text, "sip") ||
		strings.Contains(text, "mutual fund") ||
		strings.Contains(text, "folio") ||
		strings.Contains(text, "camsonline")
}

func (sipParser) Parse(_ context.Context, email store.RawEmail) []store.Transaction {
	text := email.Subject + "\n" + email.BodyText

	amount, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	m := fundPattern.FindStringSubmatch(email.BodyText)
	if len(m) < 2 {
		return nil
	}
	merchant := cleanMerchant(m[1])
	if merchant == "" {
		return nil
	}

	// A SIP purchase moves money out; only a redemption credits it back.
	direction := store.DirectionDebit
	lower := strings.ToLower(text)
	if strings.Contains(lower, "redemption") || strings.Contains(lower, "redeemed") {
		direction = store.DirectionCredit
	}

	tx := store.Transaction{
		ID:             uuid.NewString(),
		EmailMessageID: email.MessageID,
		Date:           ExtractDate(email),
		Amount:         amount,
		Currency:       "INR",
		Direction:      direction,
		Type:           store.TypeSIP,
		Merchant:       merchant,
		Bank:           DetectBank(email),
		Category:       "Investment",
		Source:         store.SourceRegex,
		NeedsReview:    false,
	}
	if f := folioPattern.FindStringSubmatch(email.BodyText); len(f) > 1 {
		tx.Reference = strings.TrimSpace(f[1])
	}
	return []store.Transaction{tx}
}
