// Package parser turns raw notification emails into normalized
// transactions. A registry dispatches each email through an ordered chain
// of format-specific parsers and escalates to a model-backed fallback when
// none of them yields; an email no tier can read is logged and skipped,
// never fatal.
package parser

import (
	"context"

	"github.com/c360studio/expense-tracker/store"
)

// Parser extracts transactions from one raw email.
type Parser interface {
	// Name identifies the parser in logs.
	Name() string

	// CanParse reports whether the email looks like this parser's format.
	CanParse(email store.RawEmail) bool

	// Parse extracts transactions. A nil or empty result means the email
	// could not be read by this parser and the next tier should try.
	Parse(ctx context.Context, email store.RawEmail) []store.Transaction
}
