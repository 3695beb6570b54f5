package parser

import (
	"context"
	"log/slog"

	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

// Registry holds an ordered list of parsers and an optional fallback.
type Registry struct {
	parsers  []Parser
	fallback Parser
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty parser registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a parser to the ordered chain.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// SetFallback sets the parser consulted after the whole chain has passed.
func (r *Registry) SetFallback(p Parser) {
	r.fallback = p
}

// DefaultRegistry returns the standard chain: the format-specific parsers
// ordered most-specific first, with the model-backed parser as fallback.
func DefaultRegistry(client llm.Invoker, opts ...AIOption) *Registry {
	r := NewRegistry()
	r.Register(NewUPIParser())
	r.Register(NewCreditCardParser())
	r.Register(NewSIPParser())
	r.Register(NewLoanParser())
	r.Register(NewBankTransferParser())
	r.SetFallback(NewAIParser(client, opts...))
	return r
}

// AIOnlyRegistry routes every email straight to the model, skipping the
// deterministic tier.
func AIOnlyRegistry(client llm.Invoker, opts ...AIOption) *Registry {
	r := NewRegistry()
	r.SetFallback(NewAIParser(client, opts...))
	return r
}

// Parse runs the email through the chain. A parser that recognizes the
// format but fails to extract anything escalates to the next tier instead
// of discarding the email; only when every tier has passed is the email
// reported unparseable with a nil result.
func (r *Registry) Parse(ctx context.Context, email store.RawEmail) []store.Transaction {
	for _, p := range r.parsers {
		if !p.CanParse(email) {
			continue
		}
		txs := r.parseSafe(ctx, p, email)
		if len(txs) > 0 {
			r.logger.Debug("Parsed email",
				"parser", p.Name(),
				"message_id", email.MessageID,
				"transactions", len(txs))
			return txs
		}
	}

	if r.fallback != nil {
		txs := r.parseSafe(ctx, r.fallback, email)
		if len(txs) > 0 {
			r.logger.Debug("Parsed email",
				"parser", r.fallback.Name(),
				"message_id", email.MessageID,
				"transactions", len(txs))
			return txs
		}
	}

	r.logger.Warn("Email unparseable", "message_id", email.MessageID, "subject", email.Subject)
	return nil
}

// parseSafe shields the chain from a panicking parser; the email just
// moves on to the next tier.
func (r *Registry) parseSafe(ctx context.Context, p Parser, email store.RawEmail) (txs []store.Transaction) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Parser panicked",
				"parser", p.Name(),
				"message_id", email.MessageID,
				"panic", rec)
			txs = nil
		}
	}()
	return p.Parse(ctx, email)
}
