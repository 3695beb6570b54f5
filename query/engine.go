// Package query answers natural-language questions about the ledger by
// generating SQL with the model, guarding it, executing it read-only,
// and interpreting the results.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

const (
	// DefaultMaxRows caps how many result rows are executed and shown to
	// the model for interpretation.
	DefaultMaxRows = 100

	// cannotAnswerSentinel is what the model returns when the schema
	// cannot answer the question.
	cannotAnswerSentinel = "CANNOT_ANSWER"

	cannotAnswerText = "I can't answer that from the transaction data. Try asking about amounts, merchants, categories, or dates."
)

// Answer is the outcome of one question.
type Answer struct {
	Text    string   // natural-language answer, or the raw table when interpretation failed
	SQL     string   // generated statement; empty when the model could not answer
	Columns []string // result columns, nil when nothing was executed
	Rows    [][]string
}

// Engine runs the generate, guard, execute, interpret loop.
type Engine struct {
	client  llm.Invoker
	store   *store.Store
	maxRows int
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRows caps executed result rows.
func WithMaxRows(n int) Option {
	return func(e *Engine) {
		e.maxRows = n
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a query engine over the given model client and store.
func New(client llm.Invoker, st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		store:   st,
		maxRows: DefaultMaxRows,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers one question. A question the model cannot map onto the
// schema yields a friendly Answer, not an error; a statement the guard
// refuses yields ErrRejected without executing anything.
func (e *Engine) Ask(ctx context.Context, question string) (Answer, error) {
	sqlText, err := e.generateSQL(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	if sqlText == "" {
		return Answer{Text: cannotAnswerText}, nil
	}

	if err := ValidateReadOnly(sqlText); err != nil {
		return Answer{SQL: sqlText}, err
	}

	cols, rows, err := e.store.Query(ctx, sqlText, e.maxRows)
	if err != nil {
		return Answer{SQL: sqlText}, fmt.Errorf("executing generated query: %w", err)
	}

	answer := Answer{SQL: sqlText, Columns: cols, Rows: rows}
	table := renderTable(cols, rows)

	text, err := e.interpret(ctx, question, table)
	if err != nil {
		e.logger.Warn("Interpretation failed, returning raw results", "error", err)
		answer.Text = table
		return answer, nil
	}
	answer.Text = text
	return answer, nil
}

func (e *Engine) generateSQL(ctx context.Context, question string) (string, error) {
	out, err := e.client.Run(ctx, fmt.Sprintf(sqlPrompt, schemaDDL, question), llm.FormatText)
	if err != nil {
		return "", fmt.Errorf("generating sql: %w", err)
	}

	sqlText := strings.TrimSpace(llm.StripFences(out))
	if sqlText == "" {
		return "", fmt.Errorf("model returned no sql")
	}
	if strings.Contains(strings.ToUpper(sqlText), cannotAnswerSentinel) {
		return "", nil
	}
	e.logger.Debug("Generated query", "sql", sqlText)
	return sqlText, nil
}

func (e *Engine) interpret(ctx context.Context, question, table string) (string, error) {
	out, err := e.client.Run(ctx, fmt.Sprintf(interpretPrompt, question, table), llm.FormatText)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out)
	if text == "" {
		return "", fmt.Errorf("model returned empty interpretation")
	}
	return text, nil
}

// renderTable formats results as a pipe-delimited table.
func renderTable(cols []string, rows [][]string) string {
	if len(rows) == 0 {
		if len(cols) == 0 {
			return "(no rows)"
		}
		return strings.Join(cols, " | ") + "\n(no rows)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	return b.String()
}
