package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/store"
)

var (
	transferModePattern = regexp.MustCompile(`(?i)\b(NEFT|IMPS|RTGS)\b`)
	// Counterparty in narration form: "NEFT-AXIS-SALARY JULY" or "IMPS/P2A/ACME CORP".
	transferNarrationPattern = regexp.MustCompile(`(?i)\b(?:NEFT|IMPS|RTGS)[-/]\s*(?:[A-Z0-9]{2,8}[-/])?\s*([A-Za-z][A-Za-z0-9 .&']{2,40}?)(?:[-/]|\.\s|\.$|,|\n|$)`)
	// Counterparty in prose form: "credited ... by ACME CORP" / "transferred
	// to Rohan Sharma". Case-sensitive so the capitalized-name requirement
	// filters out phrases like "from your account".
	transferPartyPattern = regexp.MustCompile(`\b(?:by|from|to|towards)\s+((?:M/s\.?\s+)?[A-Z][A-Za-z0-9 .&']{2,40}?)(?:\s+(?:on|via|through|vide|with|has|is)\b|\.\s|\.$|,|\n|$)`)

	transferRefPattern = regexp.MustCompile(`(?i)(?:ref(?:erence)?\s*(?:no\.?|number)?|utr)\s*[:\s]\s*([A-Za-z0-9]{8,22})`)
)

type bankTransferParser struct{}

// NewBankTransferParser parses NEFT, IMPS and RTGS account alerts. Its
// CanParse is the broadest of the deterministic parsers, so the registry
// places it last in the chain.
func NewBankTransferParser() Parser {
	return bankTransferParser{}
}

func (bankTransferParser) Name() string {
	return "bank_transfer"
}

func (bankTransferParser) CanParse(email store.RawEmail) bool {
	text := strings.ToLower(email.Subject + "\n" + email.BodyText)
	for _, kw := range []string{"neft", "imps", "rtgs", "transferred", "credited", "debited"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (bankTransferParser) Parse(_ context.Context, email store.RawEmail) []store.Transaction {
	text := email.Subject + "\n" + email.BodyText

	amount, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	merchant := ""
	if m := transferNarrationPattern.FindStringSubmatch(text); len(m) > 1 {
		merchant = cleanMerchant(m[1])
	}
	if merchant == "" {
		if m := transferPartyPattern.FindStringSubmatch(text); len(m) > 1 {
			merchant = cleanMerchant(m[1])
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
		Type:           store.TypeBankTransfer,
		Merchant:       merchant,
		Account:        DetectAccount(email.BodyText),
		Bank:           DetectBank(email),
		Source:         store.SourceRegex,
		NeedsReview:    false,
	}
	if r := transferRefPattern.FindStringSubmatch(text); len(r) > 1 {
		tx.Reference = r[1]
	}
	return []store.Transaction{tx}
}
