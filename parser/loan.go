package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/store"
)

var (
	loanKindPattern    = regexp.MustCompile(`(?i)\b(home|car|vehicle|personal|education|gold|business)\s+loan\b`)
	loanAccountPattern = regexp.MustCompile(`(?i)loan\s*(?:a/c|account)?\s*(?:no\.?|number)?\s*[:\s]?\s*([A-Z]{0,4}\d{6,16})`)
)

type loanParser struct{}

// NewLoanParser parses loan EMI debit notifications.
func NewLoanParser() Parser {
	return loanParser{}
}

func (loanParser) Name() string {
	return "loan"
}

func (loanParser) CanParse(email store.RawEmail) bool {
	text := strings.ToLower(email.Subject + "\n" + email.BodyText)
	return strings.Contains(text, "emi") || strings.Contains(text, "loan")
}

func (loanParser) Parse(_ context.Context, email store.RawEmail) []store.Transaction {
	text := email.Subject + "\n" + email.BodyText

	amount, ok := ExtractAmount(text)
	if !ok {
		return nil
	}

	merchant := "Loan EMI"
	if m := loanKindPattern.FindStringSubmatch(text); len(m) > 1 {
		kind := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		merchant = kind + " Loan EMI"
	}

	tx := store.Transaction{
		ID:             uuid.NewString(),
		EmailMessageID: email.MessageID,
		Date:           ExtractDate(email),
		Amount:         amount,
		Currency:       "INR",
		Direction:      DetectDirection(text),
		Type:           store.TypeLoan,
		Merchant:       merchant,
		Account:        DetectAccount(email.BodyText),
		Bank:           DetectBank(email),
		Source:         store.SourceRegex,
		NeedsReview:    false,
	}
	if a := loanAccountPattern.FindStringSubmatch(email.BodyText); len(a) > 1 {
		tx.Reference = a[1]
	}
	return []store.Transaction{tx}
}
