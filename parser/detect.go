package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/expense-tracker/store"
)

// creditKeywords mark money arriving. They are checked before the debit
// default and deliberately avoid the bare word "credit", which appears in
// phrases like "credit card" on debit alerts.
var creditKeywords = []string{
	"credited",
	"received",
	"refund",
	"cashback",
	"deposited",
	"reversed",
}

// DetectDirection classifies the movement from notification wording.
// Anything that does not clearly say money arrived is treated as a debit.
func DetectDirection(text string) store.Direction {
	lower := strings.ToLower(text)
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return store.DirectionCredit
		}
	}
	return store.DirectionDebit
}

// bankPatterns is scanned in order; the first match wins, so more specific
// names come before substrings they could shadow.
var bankPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"HDFC", regexp.MustCompile(`(?i)hdfc`)},
	{"ICICI", regexp.MustCompile(`(?i)icici`)},
	{"Axis", regexp.MustCompile(`(?i)axis`)},
	{"SBI", regexp.MustCompile(`(?i)\bsbi\b|state bank`)},
	{"Kotak", regexp.MustCompile(`(?i)kotak`)},
	{"IDFC", regexp.MustCompile(`(?i)idfc`)},
	{"Yes Bank", regexp.MustCompile(`(?i)yes\s*bank`)},
	{"PNB", regexp.MustCompile(`(?i)\bpnb\b|punjab national`)},
	{"BOB", regexp.MustCompile(`(?i)\bbob\b|bank of baroda`)},
	{"Federal", regexp.MustCompile(`(?i)federal bank`)},
}

// DetectBank scans the sender, subject, and body for a known bank name.
func DetectBank(email store.RawEmail) string {
	text := email.From + "\n" + email.Subject + "\n" + email.BodyText
	for _, b := range bankPatterns {
		if b.pattern.MatchString(text) {
			return b.name
		}
	}
	return ""
}

var accountPattern = regexp.MustCompile(`(?i)(?:a/c|account|card)\s*(?:no\.?\s*)?(?:ending\s*(?:in\s*)?)?[Xx*]*(\d{3,4})`)

// DetectAccount extracts the masked account or card tail, rendered as
// **NNNN.
func DetectAccount(text string) string {
	if m := accountPattern.FindStringSubmatch(text); len(m) > 1 {
		return "**" + m[1]
	}
	return ""
}

// bodyDatePattern finds an in-body transaction date like "on 01-07-25",
// "on 01-Jul-2025", or "on 2025-07-01".
var bodyDatePattern = regexp.MustCompile(`(?i)\bon\s+(\d{4}-\d{2}-\d{2}|\d{1,2}[-/ ][A-Za-z0-9]{1,3}[-/ ]\d{2,4})`)

// dateLayouts are tried in order. Numeric forms follow the Indian
// day-month-year convention.
var dateLayouts = []string{
	"2006-01-02",
	"2-1-2006",
	"2/1/2006",
	"2-1-06",
	"2/1/06",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"2 Jan 06",
	"Jan 2, 2006",
}

// ParseDate normalizes a date string to YYYY-MM-DD.
func ParseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ExtractDate finds and normalizes an in-body transaction date, falling
// back to the email's send date.
func ExtractDate(email store.RawEmail) string {
	if m := bodyDatePattern.FindStringSubmatch(email.BodyText); len(m) > 1 {
		if d, ok := ParseDate(m[1]); ok {
			return d
		}
	}
	return email.Date.Format("2006-01-02")
}
