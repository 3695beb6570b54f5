package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

const (
	// DefaultBodyLimit bounds the email body included in the extraction prompt.
	DefaultBodyLimit = 8000

	// DefaultConfidenceThreshold is the confidence below which extracted
	// transactions are queued for review.
	DefaultConfidenceThreshold = 0.7

	defaultConfidence = 0.5
)

// AIParser extracts transactions from emails no format-specific parser could
// handle. It claims every email; an empty result means the model found no
// transaction in it.
type AIParser struct {
	client    llm.Invoker
	bodyLimit int
	threshold float64
	logger    *slog.Logger
}

// AIOption configures the AI parser.
type AIOption func(*AIParser)

// WithBodyLimit caps the body length included in the prompt.
func WithBodyLimit(n int) AIOption {
	return func(p *AIParser) {
		p.bodyLimit = n
	}
}

// WithConfidenceThreshold sets the confidence below which extracted
// transactions are flagged for review.
func WithConfidenceThreshold(t float64) AIOption {
	return func(p *AIParser) {
		p.threshold = t
	}
}

// WithAILogger sets the parser logger.
func WithAILogger(logger *slog.Logger) AIOption {
	return func(p *AIParser) {
		p.logger = logger
	}
}

// NewAIParser creates a model-backed fallback parser.
func NewAIParser(client llm.Invoker, opts ...AIOption) *AIParser {
	p := &AIParser{
		client:    client,
		bodyLimit: DefaultBodyLimit,
		threshold: DefaultConfidenceThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AIParser) Name() string {
	return "ai"
}

func (p *AIParser) CanParse(store.RawEmail) bool {
	return true
}

type aiResponse struct {
	Transactions []aiTransaction `json:"transactions"`
}

// aiTransaction mirrors the prompt's JSON shape. Amount is any because the
// model sometimes returns a currency string instead of a number.
type aiTransaction struct {
	Amount      any      `json:"amount"`
	Direction   string   `json:"direction"`
	Type        string   `json:"type"`
	Merchant    string   `json:"merchant"`
	Account     string   `json:"account"`
	Bank        string   `json:"bank"`
	Reference   string   `json:"reference"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Confidence  *float64 `json:"confidence"`
}

// Parse asks the model to extract transactions. Model failures and
// malformed entries degrade to a nil result rather than an error so a bad
// email never stalls a sync.
func (p *AIParser) Parse(ctx context.Context, email store.RawEmail) []store.Transaction {
	var resp aiResponse
	if err := p.client.RunJSON(ctx, p.buildPrompt(email), &resp); err != nil {
		p.logger.Warn("AI extraction failed", "message_id", email.MessageID, "error", err)
		return nil
	}

	txs := make([]store.Transaction, 0, len(resp.Transactions))
	for i, raw := range resp.Transactions {
		tx, err := p.coerce(raw, email)
		if err != nil {
			p.logger.Warn("Discarding extracted transaction",
				"message_id", email.MessageID,
				"index", i,
				"error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func (p *AIParser) buildPrompt(email store.RawEmail) string {
	body := email.BodyText
	if body == "" {
		body = email.BodyHTML
	}
	return fmt.Sprintf(extractUserPrompt,
		email.Subject,
		email.From,
		email.Date.Format("2006-01-02"),
		truncateBody(body, p.bodyLimit))
}

// truncateBody bounds the body included in the prompt, preferring a
// paragraph break when one falls in the second half.
func truncateBody(body string, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return body
	}
	truncated := body[:limit]
	if para := strings.LastIndex(truncated, "\n\n"); para > limit/2 {
		truncated = truncated[:para]
	}
	return truncated + "\n\n[truncated]"
}

// coerce normalizes one model-extracted entry into a storable transaction.
func (p *AIParser) coerce(raw aiTransaction, email store.RawEmail) (store.Transaction, error) {
	amount, err := coerceAmount(raw.Amount)
	if err != nil {
		return store.Transaction{}, err
	}

	direction := store.Direction(strings.ToLower(strings.TrimSpace(raw.Direction)))
	if !direction.Valid() {
		direction = store.DirectionDebit
	}

	txType := store.TxType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !txType.Valid() {
		txType = store.TypeBankTransfer
	}

	merchant := strings.TrimSpace(raw.Merchant)
	if merchant == "" {
		merchant = "Unknown"
	}

	confidence := defaultConfidence
	if raw.Confidence != nil {
		confidence = math.Min(1, math.Max(0, *raw.Confidence))
	}

	date := email.Date.Format("2006-01-02")
	if d := strings.TrimSpace(raw.Date); d != "" {
		if parsed, ok := ParseDate(d); ok {
			date = parsed
		}
	}

	return store.Transaction{
		ID:             uuid.NewString(),
		EmailMessageID: email.MessageID,
		Date:           date,
		Amount:         amount,
		Currency:       "INR",
		Direction:      direction,
		Type:           txType,
		Merchant:       merchant,
		Account:        strings.TrimSpace(raw.Account),
		Bank:           strings.TrimSpace(raw.Bank),
		Reference:      strings.TrimSpace(raw.Reference),
		Description:    strings.TrimSpace(raw.Description),
		Source:         store.SourceAI,
		Confidence:     &confidence,
		NeedsReview:    confidence < p.threshold,
	}, nil
}

func coerceAmount(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("non-finite amount %v", n)
		}
		if n == 0 {
			return 0, errors.New("zero amount")
		}
		return math.Abs(n), nil
	case string:
		return ParseAmount(n)
	case nil:
		return 0, errors.New("missing amount")
	default:
		return 0, fmt.Errorf("amount has unsupported type %T", v)
	}
}
