// Package commands implements the expense-tracker command surface. Each
// command is a constructor over a shared App that wires config, store,
// model client, and mailbox lazily, so commands only pay for what they use.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/expense-tracker/categorize"
	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/dedup"
	"github.com/c360studio/expense-tracker/gmail"
	"github.com/c360studio/expense-tracker/insights"
	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/parser"
	"github.com/c360studio/expense-tracker/query"
	"github.com/c360studio/expense-tracker/review"
	"github.com/c360studio/expense-tracker/store"
)

// App wires the components behind the command surface. Construction is
// cheap; the store, model client, and mailbox open on first use.
type App struct {
	Dir    string
	Config *config.Config
	Logger *slog.Logger

	store   *store.Store
	client  llm.Invoker
	mailbox gmail.Mailbox
}

// NewApp loads configuration from dir and returns an App ready for
// commands. The directory is created when missing.
func NewApp(dir string, logger *slog.Logger) (*App, error) {
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	if err := config.EnsureDir(dir); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Dir:    dir,
		Config: cfg,
		Logger: logger,
	}, nil
}

// Store opens the database on first use.
func (a *App) Store() (*store.Store, error) {
	if a.store == nil {
		st, err := store.Open(config.DBPath(a.Dir), store.WithLogger(a.Logger))
		if err != nil {
			return nil, err
		}
		a.store = st
	}
	return a.store, nil
}

// LLM returns the model gateway.
func (a *App) LLM() llm.Invoker {
	if a.client == nil {
		a.client = llm.NewClient(
			llm.WithRetryConfig(a.retryConfig()),
			llm.WithLogger(a.Logger),
		)
	}
	return a.client
}

// ModelAvailable probes the model binary. Commands that can degrade
// check this once and print a notice instead of failing.
func (a *App) ModelAvailable(ctx context.Context) bool {
	return a.LLM().Available(ctx)
}

// Mailbox builds the authenticated Gmail client on first use. This is the
// only path that may prompt for interactive OAuth.
func (a *App) Mailbox(ctx context.Context) (gmail.Mailbox, error) {
	if a.mailbox == nil {
		svc, err := gmail.Service(ctx, a.Dir, a.Config.Gmail)
		if err != nil {
			return nil, err
		}
		a.mailbox = gmail.NewClient(svc,
			gmail.WithRetryConfig(a.retryConfig()),
			gmail.WithFetchBatchSize(a.Config.Gmail.FetchBatchSize),
			gmail.WithLogger(a.Logger),
		)
	}
	return a.mailbox, nil
}

// Registry returns the parsing pipeline: the format-specific chain with
// the model fallback when available, the chain alone otherwise.
func (a *App) Registry(modelAvailable bool) *parser.Registry {
	opts := []parser.AIOption{
		parser.WithBodyLimit(a.Config.Parser.BodyTruncationLimit),
		parser.WithConfidenceThreshold(a.Config.Parser.ConfidenceThreshold),
		parser.WithAILogger(a.Logger),
	}
	r := parser.DefaultRegistry(a.LLM(), opts...)
	if !modelAvailable {
		r.SetFallback(nil)
	}
	return r
}

// Categorizer builds the categorization engine.
func (a *App) Categorizer() (*categorize.Categorizer, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return categorize.New(a.LLM(), st, a.Config.Categories, categorize.WithLogger(a.Logger)), nil
}

// Dedup builds the duplicate-detection engine.
func (a *App) Dedup() (*dedup.Engine, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return dedup.New(a.LLM(), st,
		dedup.WithDateTolerance(a.Config.Dedup.DateToleranceDays),
		dedup.WithLogger(a.Logger)), nil
}

// Query builds the natural-language query engine.
func (a *App) Query() (*query.Engine, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return query.New(a.LLM(), st, query.WithLogger(a.Logger)), nil
}

// Insights builds the insights engine.
func (a *App) Insights() (*insights.Engine, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return insights.New(st, a.Config.Alerts, insights.WithLogger(a.Logger)), nil
}

// Review builds the review queue.
func (a *App) Review() (*review.Queue, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return review.New(st, review.WithLogger(a.Logger)), nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.store != nil {
		err := a.store.Close()
		a.store = nil
		return err
	}
	return nil
}

func (a *App) retryConfig() llm.RetryConfig {
	return llm.RetryConfig{
		MaxRetries:   a.Config.RateLimit.MaxRetries,
		InitialDelay: a.Config.InitialDelay(),
		MaxDelay:     a.Config.MaxDelay(),
	}
}

// requireCategory validates a user-supplied category against the
// configured set, matching case-insensitively.
func (a *App) requireCategory(name string) (string, error) {
	for _, cat := range a.Config.Categories.List {
		if strings.EqualFold(cat, name) {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unknown category %q (known: %v)", name, a.Config.Categories.List)
}
