package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/store"
)

var (
	// ccMerchantPattern catches "at AMAZON on", "at SWIGGY BANGALORE.".
	ccMerchantPattern = regexp.MustCompile(`(?i)\bat\s+([A-Za-z0-9][A-Za-z0-9 &.\-'*]{1,60}?)(?:\s+on\b|\s+using\b|\.\s|\.$|,|\n)`)

	ccRefPattern = regexp.MustCompile(`(?i)(?:transaction|auth(?:orization)?)\s*(?:ref(?:erence)?\s*)?(?:no\.?|number|code)?[:\s]\s*([A-Z0-9]{6,18})`)
)

type creditCardParser struct{}

// NewCreditCardParser parses credit card spend alerts.
func NewCreditCardParser() Parser {
	return creditCardParser{}
}

func (creditCardParser) Name() string {
	return "credit_card"
}

func (creditCardParser) CanParse(email store.RawEmail) bool {
	text := strings.ToLower(email.From + "\n" + email.Subject + "\n" + email.BodyText)
	return strings.Contains(text, "credit card") ||
		strings.Contains(text, "card ending") ||
		strings.Contains(text, "credit_cards@")
}

func (creditCardParser) Parse(_ context.Context, email store.RawEmail) []store.Transaction {
	text := email.Subject + "\n" + email.BodyText

	amount, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	m := ccMerchantPattern.FindStringSubmatch(email.BodyText)
	if len(m) < 2 {
		return nil
	}
	merchant := cleanMerchant(m[1])
	if merchant == "" {
		return nil
	}

	tx := store.Transaction{
		ID:             uuid.NewString(),
		EmailMessageID: email.MessageID,
		Date:           ExtractDate(email),
		Amount:         amount,
		Currency:       "INR",
		Direction:      DetectDirection(text),
		Type:           store.TypeCreditCard,
		Merchant:       merchant,
		Account:        DetectAccount(email.BodyText),
		Bank:           DetectBank(email),
		Source:         store.SourceRegex,
		NeedsReview:    false,
	}
	if r := ccRefPattern.FindStringSubmatch(email.BodyText); len(r) > 1 {
		tx.Reference = r[1]
	}
	return []store.Transaction{tx}
}
