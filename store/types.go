package store

import (
	"fmt"
	"time"
)

// Direction distinguishes money leaving an account from money entering it.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Valid reports whether the direction is a known value.
func (d Direction) Valid() bool {
	switch d {
	case DirectionDebit, DirectionCredit:
		return true
	default:
		return false
	}
}

// TxType classifies the instrument behind a transaction.
type TxType string

const (
	TypeUPI          TxType = "upi"
	TypeCreditCard   TxType = "credit_card"
	TypeBankTransfer TxType = "bank_transfer"
	TypeSIP          TxType = "sip"
	TypeLoan         TxType = "loan"
)

// Valid reports whether the type is a known value.
func (t TxType) Valid() bool {
	switch t {
	case TypeUPI, TypeCreditCard, TypeBankTransfer, TypeSIP, TypeLoan:
		return true
	default:
		return false
	}
}

// TxSource records which tier of the parsing pipeline produced a transaction.
type TxSource string

const (
	SourceRegex TxSource = "regex"
	SourceAI    TxSource = "ai"
)

// Valid reports whether the source is a known value.
func (s TxSource) Valid() bool {
	switch s {
	case SourceRegex, SourceAI:
		return true
	default:
		return false
	}
}

// Verdict is a user-supplied ground-truth label on a transaction.
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictWrong   Verdict = "wrong"
)

// Valid reports whether the verdict is a known value.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictCorrect, VerdictWrong:
		return true
	default:
		return false
	}
}

// RawEmail is one notification email as fetched from the provider.
// Rows are written once per message id and never mutated.
type RawEmail struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	BodyText  string    `json:"body_text"`
	BodyHTML  string    `json:"body_html,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks required raw email fields.
func (e RawEmail) Validate() error {
	if e.MessageID == "" {
		return fmt.Errorf("raw email: message id is required")
	}
	if e.BodyText == "" {
		return fmt.Errorf("raw email %s: body text is required", e.MessageID)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("raw email %s: date is required", e.MessageID)
	}
	return nil
}

// Transaction is one normalized ledger entry extracted from a raw email.
// Date is a calendar day in YYYY-MM-DD form; the sign of the movement is
// carried by Direction, so Amount is always positive.
type Transaction struct {
	ID             string    `json:"id"`
	EmailMessageID string    `json:"email_message_id"`
	Date           string    `json:"date"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Direction      Direction `json:"direction"`
	Type           TxType    `json:"type"`
	Merchant       string    `json:"merchant"`
	Account        string    `json:"account,omitempty"`
	Bank           string    `json:"bank,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Source         TxSource  `json:"source"`
	Confidence     *float64  `json:"confidence,omitempty"`
	NeedsReview    bool      `json:"needs_review"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the transaction invariants enforced before insert.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction: id is required")
	}
	if t.EmailMessageID == "" {
		return fmt.Errorf("transaction %s: email message id is required", t.ID)
	}
	if t.Date == "" {
		return fmt.Errorf("transaction %s: date is required", t.ID)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("transaction %s: amount must be positive, got %v", t.ID, t.Amount)
	}
	if !t.Direction.Valid() {
		return fmt.Errorf("transaction %s: invalid direction %q", t.ID, t.Direction)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("transaction %s: invalid type %q", t.ID, t.Type)
	}
	if !t.Source.Valid() {
		return fmt.Errorf("transaction %s: invalid source %q", t.ID, t.Source)
	}
	if t.Source == SourceAI && t.Confidence == nil {
		return fmt.Errorf("transaction %s: confidence is required for ai source", t.ID)
	}
	if t.Confidence != nil && (*t.Confidence < 0 || *t.Confidence > 1) {
		return fmt.Errorf("transaction %s: confidence %v outside [0,1]", t.ID, *t.Confidence)
	}
	return nil
}

// CategoryCorrection is an append-only record of a user recategorization,
// replayed to the model as a few-shot example for the same merchant.
type CategoryCorrection struct {
	ID                int64     `json:"id"`
	Merchant          string    `json:"merchant"`
	Description       string    `json:"description,omitempty"`
	OriginalCategory  string    `json:"original_category"`
	CorrectedCategory string    `json:"corrected_category"`
	CreatedAt         time.Time `json:"created_at"`
}

// DuplicateGroup links a duplicate transaction to the one kept. A
// transaction can be the duplicate in at most one group.
type DuplicateGroup struct {
	ID                     int64     `json:"id"`
	KeptTransactionID      string    `json:"kept_transaction_id"`
	DuplicateTransactionID string    `json:"duplicate_transaction_id"`
	Reason                 string    `json:"reason"`
	Confidence             *float64  `json:"confidence,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// EvalFlag is a user-supplied verdict on a transaction, kept for future
// regression sets.
type EvalFlag struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Verdict       Verdict   `json:"verdict"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
