// Package export serializes the transaction ledger to interchange
// formats for spreadsheets and downstream tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/expense-tracker/store"
)

// Format identifies an export serialization.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatCSV: {
		Name:        FormatCSV,
		MIMEType:    "text/csv",
		Extension:   ".csv",
		Description: "CSV - one transaction per row, spreadsheet-ready",
	},
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON - indented transaction array",
	},
	FormatYAML: {
		Name:        FormatYAML,
		MIMEType:    "application/yaml",
		Extension:   ".yaml",
		Description: "YAML - transaction list",
	},
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := FormatRegistry[f]; !ok {
		return "", fmt.Errorf("unknown export format %q (supported: %s)", name, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// FormatNames lists the supported format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Write serializes transactions to w in the given format.
func Write(w io.Writer, format Format, txs []store.Transaction) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, txs)
	case FormatJSON:
		return writeJSON(w, txs)
	case FormatYAML:
		return writeYAML(w, txs)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// csvHeader is the column order for CSV export.
var csvHeader = []string{
	"id", "date", "amount", "currency", "direction", "type",
	"merchant", "account", "bank", "reference", "description",
	"category", "source", "confidence", "needs_review", "email_message_id",
}

func writeCSV(w io.Writer, txs []store.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, t := range txs {
		confidence := ""
		if t.Confidence != nil {
			confidence = strconv.FormatFloat(*t.Confidence, 'f', 2, 64)
		}
		record := []string{
			t.ID, t.Date,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.Currency, string(t.Direction), string(t.Type),
			t.Merchant, t.Account, t.Bank, t.Reference, t.Description,
			t.Category, string(t.Source), confidence,
			strconv.FormatBool(t.NeedsReview), t.EmailMessageID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, txs []store.Transaction) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if txs == nil {
		txs = []store.Transaction{}
	}
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// yamlTransaction flattens a transaction for YAML output; zero-value
// optionals are omitted.
type yamlTransaction struct {
	ID          string   `yaml:"id"`
	Date        string   `yaml:"date"`
	Amount      float64  `yaml:"amount"`
	Currency    string   `yaml:"currency"`
	Direction   string   `yaml:"direction"`
	Type        string   `yaml:"type"`
	Merchant    string   `yaml:"merchant"`
	Account     string   `yaml:"account,omitempty"`
	Bank        string   `yaml:"bank,omitempty"`
	Reference   string   `yaml:"reference,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Source      string   `yaml:"source"`
	Confidence  *float64 `yaml:"confidence,omitempty"`
	NeedsReview bool     `yaml:"needsReview"`
	Email       string   `yaml:"emailMessageId"`
}

func writeYAML(w io.Writer, txs []store.Transaction) error {
	out := make([]yamlTransaction, len(txs))
	for i, t := range txs {
		out[i] = yamlTransaction{
			ID: t.ID, Date: t.Date, Amount: t.Amount, Currency: t.Currency,
			Direction: string(t.Direction), Type: string(t.Type),
			Merchant: t.Merchant, Account: t.Account, Bank: t.Bank,
			Reference: t.Reference, Description: t.Description,
			Category: t.Category, Source: string(t.Source),
			Confidence: t.Confidence, NeedsReview: t.NeedsReview,
			Email: t.EmailMessageID,
		}
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}
