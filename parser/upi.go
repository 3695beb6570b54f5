package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/store"
)

var (
	vpaPattern = regexp.MustCompile(`(?i)(?:to|from)\s+(?:VPA\s+)?([a-z0-9][\w.\-]*@[a-z]\w+)`)

	// upiMerchantPattern catches the display name banks print after the
	// VPA, e.g. "to VPA swiggy@icici SWIGGY LIMITED on".
	upiMerchantPattern = regexp.MustCompile(`(?i)(?:to|from)\s+(?:VPA\s+)?[\w.\-]+@\w+\s+([A-Za-z][A-Za-z0-9 &.\-'*]{2,60}?)\s+on\b`)

	upiRefPattern = regexp.MustCompile(`(?i)UPI\s*(?:transaction\s*)?(?:Ref(?:erence)?\s*)?(?:no\.?|number|id)?\s*(?:is)?[:\s]\s*(\d{9,14})`)
)

type upiParser struct{}

// NewUPIParser parses UPI debit and credit alerts.
func NewUPIParser() Parser {
	return upiParser{}
}

func (upiParser) Name() string {
	return "upi"
}

func (upiParser) CanParse(email store.RawEmail) bool {
	text := strings.ToLower(email.Subject + "\n" + email.BodyText)
	return strings.Contains(text, "upi") || strings.Contains(text, "vpa")
}

func (upiParser) Parse(_ context.Context, email store.RawEmail) []store.Transaction {
	text := email.Subject + "\n" + email.BodyText

	amount, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	merchant := ""
	if m := upiMerchantPattern.FindStringSubmatch(email.BodyText); len(m) > 1 {
		merchant = cleanMerchant(m[1])
	}
	if merchant == "" {
		if m := vpaPattern.FindStringSubmatch(email.BodyText); len(m) > 1 {
			merchant = m[1]
		}
	}
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
		Type:           store.TypeUPI,
		Merchant:       merchant,
		Account:        DetectAccount(email.BodyText),
		Bank:           DetectBank(email),
		Source:         store.SourceRegex,
		NeedsReview:    false,
	}
	if m := upiRefPattern.FindStringSubmatch(email.BodyText); len(m) > 1 {
		tx.Reference = m[1]
	}
	return []store.Transaction{tx}
}

// cleanMerchant trims payment-gateway prefixes and collapses whitespace.
func cleanMerchant(s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"VIN*", "PAYU*", "RAZP*", "BILLDESK*"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
