// Package config provides configuration loading and management for the
// expense tracker. Defaults live in code; an optional config.json in the
// data directory is deep-merged on top, with arrays replaced wholesale so
// users can shrink the allow-lists.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the complete expense tracker configuration.
type Config struct {
	Gmail      GmailConfig      `json:"gmail"`
	Currency   CurrencyConfig   `json:"currency"`
	Alerts     AlertsConfig     `json:"alerts"`
	Sync       SyncConfig       `json:"sync"`
	Parser     ParserConfig     `json:"parser"`
	RateLimit  RateLimitConfig  `json:"rateLimit"`
	Dedup      DedupConfig      `json:"dedup"`
	Categories CategoriesConfig `json:"categories"`
}

// GmailConfig configures mail ingestion.
type GmailConfig struct {
	// Senders is the allow-list of from-addresses. Entries may be glob
	// patterns (e.g. "*@hdfcbank.net"); globs are enforced locally after
	// fetch in addition to the provider-side query.
	Senders []string `json:"senders"`
	// SubjectKeywords is the allow-list of subject words.
	SubjectKeywords []string `json:"subjectKeywords"`
	// RedirectPort is the loopback OAuth server port.
	RedirectPort int `json:"redirectPort"`
	// AuthTimeoutMs is the maximum wait for the OAuth callback.
	AuthTimeoutMs int `json:"authTimeoutMs"`
	// FetchBatchSize caps parallelism per message fetch batch.
	FetchBatchSize int `json:"fetchBatchSize"`
}

// CurrencyConfig configures display currency.
type CurrencyConfig struct {
	Code   string `json:"code"`
	Locale string `json:"locale"`
}

// AlertsConfig configures post-sync alert thresholds.
type AlertsConfig struct {
	// SpikeThreshold is the multiplier over the trailing four-week average
	// that fires a spending_spike alert.
	SpikeThreshold float64 `json:"spikeThreshold"`
	// LargeTransactionAmount is the debit size that fires a
	// large_transaction alert.
	LargeTransactionAmount float64 `json:"largeTransactionAmount"`
}

// SyncConfig configures ingestion windows.
type SyncConfig struct {
	// DefaultLookbackMonths bounds the first sync when no cursor exists.
	DefaultLookbackMonths int `json:"defaultLookbackMonths"`
}

// ParserConfig configures the parsing pipeline.
type ParserConfig struct {
	// ConfidenceThreshold is the AI-parse confidence below which a
	// transaction is queued for review.
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	// BodyTruncationLimit caps the body text included in AI prompts.
	BodyTruncationLimit int `json:"bodyTruncationLimit"`
}

// RateLimitConfig configures retry behavior for provider calls.
type RateLimitConfig struct {
	MaxRetries     int `json:"maxRetries"`
	InitialDelayMs int `json:"initialDelayMs"`
	MaxDelayMs     int `json:"maxDelayMs"`
}

// DedupConfig configures duplicate detection.
type DedupConfig struct {
	// DateToleranceDays is the maximum day gap between candidate pairs.
	DateToleranceDays int `json:"dateToleranceDays"`
}

// CategoriesConfig configures the closed category set.
type CategoriesConfig struct {
	List         []string          `json:"list"`
	Descriptions map[string]string `json:"descriptions"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Gmail: GmailConfig{
			Senders: []string{
				"alerts@hdfcbank.net",
				"alerts@icicibank.com",
				"credit_cards@icicibank.com",
				"alerts@axisbank.com",
				"alerts@sbicard.com",
				"donotreply@camsonline.com",
			},
			SubjectKeywords: []string{
				"transaction",
				"debited",
				"credited",
				"payment",
				"UPI",
				"withdrawn",
				"spent",
				"SIP",
			},
			RedirectPort:   8089,
			AuthTimeoutMs:  120000,
			FetchBatchSize: 50,
		},
		Currency: CurrencyConfig{
			Code:   "INR",
			Locale: "en-IN",
		},
		Alerts: AlertsConfig{
			SpikeThreshold:         1.4,
			LargeTransactionAmount: 10000,
		},
		Sync: SyncConfig{
			DefaultLookbackMonths: 3,
		},
		Parser: ParserConfig{
			ConfidenceThreshold: 0.7,
			BodyTruncationLimit: 8000,
		},
		RateLimit: RateLimitConfig{
			MaxRetries:     5,
			InitialDelayMs: 1000,
			MaxDelayMs:     32000,
		},
		Dedup: DedupConfig{
			DateToleranceDays: 1,
		},
		Categories: CategoriesConfig{
			List: []string{
				"Food", "Transport", "Shopping", "Bills", "Entertainment",
				"Health", "Education", "Investment", "Transfer", "Other",
			},
			Descriptions: map[string]string{
				"Food":          "Restaurants, food delivery, groceries, cafes",
				"Transport":     "Cabs, fuel, metro, parking, tolls, flights, trains",
				"Shopping":      "Online and offline retail, clothing, electronics",
				"Bills":         "Utilities, phone, internet, rent, insurance premiums",
				"Entertainment": "Streaming, movies, events, games, subscriptions",
				"Health":        "Pharmacies, hospitals, diagnostics, fitness",
				"Education":     "Courses, books, tuition, exam fees",
				"Investment":    "Mutual funds, SIPs, stocks, deposits, gold",
				"Transfer":      "Transfers to own accounts or other people",
				"Other":         "Anything that fits no other category",
			},
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Gmail.RedirectPort < 1 || c.Gmail.RedirectPort > 65535 {
		return fmt.Errorf("gmail.redirectPort must be between 1 and 65535")
	}
	if c.Gmail.AuthTimeoutMs <= 0 {
		return fmt.Errorf("gmail.authTimeoutMs must be positive")
	}
	if c.Gmail.FetchBatchSize < 1 {
		return fmt.Errorf("gmail.fetchBatchSize must be at least 1")
	}
	if c.Alerts.SpikeThreshold < 1 {
		return fmt.Errorf("alerts.spikeThreshold must be at least 1")
	}
	if c.Alerts.LargeTransactionAmount <= 0 {
		return fmt.Errorf("alerts.largeTransactionAmount must be positive")
	}
	if c.Sync.DefaultLookbackMonths < 1 {
		return fmt.Errorf("sync.defaultLookbackMonths must be at least 1")
	}
	if c.Parser.ConfidenceThreshold < 0 || c.Parser.ConfidenceThreshold > 1 {
		return fmt.Errorf("parser.confidenceThreshold must be between 0 and 1")
	}
	if c.Parser.BodyTruncationLimit < 1 {
		return fmt.Errorf("parser.bodyTruncationLimit must be at least 1")
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rateLimit.maxRetries must not be negative")
	}
	if c.RateLimit.InitialDelayMs <= 0 || c.RateLimit.MaxDelayMs <= 0 {
		return fmt.Errorf("rateLimit delays must be positive")
	}
	if c.RateLimit.MaxDelayMs < c.RateLimit.InitialDelayMs {
		return fmt.Errorf("rateLimit.maxDelayMs must not be below rateLimit.initialDelayMs")
	}
	if c.Dedup.DateToleranceDays < 0 {
		return fmt.Errorf("dedup.dateToleranceDays must not be negative")
	}
	if len(c.Categories.List) == 0 {
		return fmt.Errorf("categories.list must not be empty")
	}
	if !c.HasCategory("Other") {
		return fmt.Errorf("categories.list must include Other")
	}
	return nil
}

// HasCategory reports whether name is in the configured category set.
func (c *Config) HasCategory(name string) bool {
	for _, cat := range c.Categories.List {
		if cat == name {
			return true
		}
	}
	return false
}

// AuthTimeout returns the OAuth callback wait as a duration.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Gmail.AuthTimeoutMs) * time.Millisecond
}

// InitialDelay returns the retry base delay as a duration.
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.RateLimit.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a duration.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.RateLimit.MaxDelayMs) * time.Millisecond
}

// LoadFromFile loads configuration from a JSON file, merged over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overrides Config
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config := DefaultConfig()
	config.Merge(&overrides)
	return config, nil
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one. Non-zero scalar values in other
// take precedence; non-empty arrays replace wholesale; the descriptions map
// is merged per key.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Gmail
	if len(other.Gmail.Senders) > 0 {
		c.Gmail.Senders = other.Gmail.Senders
	}
	if len(other.Gmail.SubjectKeywords) > 0 {
		c.Gmail.SubjectKeywords = other.Gmail.SubjectKeywords
	}
	if other.Gmail.RedirectPort != 0 {
		c.Gmail.RedirectPort = other.Gmail.RedirectPort
	}
	if other.Gmail.AuthTimeoutMs != 0 {
		c.Gmail.AuthTimeoutMs = other.Gmail.AuthTimeoutMs
	}
	if other.Gmail.FetchBatchSize != 0 {
		c.Gmail.FetchBatchSize = other.Gmail.FetchBatchSize
	}

	// Currency
	if other.Currency.Code != "" {
		c.Currency.Code = other.Currency.Code
	}
	if other.Currency.Locale != "" {
		c.Currency.Locale = other.Currency.Locale
	}

	// Alerts
	if other.Alerts.SpikeThreshold != 0 {
		c.Alerts.SpikeThreshold = other.Alerts.SpikeThreshold
	}
	if other.Alerts.LargeTransactionAmount != 0 {
		c.Alerts.LargeTransactionAmount = other.Alerts.LargeTransactionAmount
	}

	// Sync
	if other.Sync.DefaultLookbackMonths != 0 {
		c.Sync.DefaultLookbackMonths = other.Sync.DefaultLookbackMonths
	}

	// Parser
	if other.Parser.ConfidenceThreshold != 0 {
		c.Parser.ConfidenceThreshold = other.Parser.ConfidenceThreshold
	}
	if other.Parser.BodyTruncationLimit != 0 {
		c.Parser.BodyTruncationLimit = other.Parser.BodyTruncationLimit
	}

	// Rate limit
	if other.RateLimit.MaxRetries != 0 {
		c.RateLimit.MaxRetries = other.RateLimit.MaxRetries
	}
	if other.RateLimit.InitialDelayMs != 0 {
		c.RateLimit.InitialDelayMs = other.RateLimit.InitialDelayMs
	}
	if other.RateLimit.MaxDelayMs != 0 {
		c.RateLimit.MaxDelayMs = other.RateLimit.MaxDelayMs
	}

	// Dedup
	if other.Dedup.DateToleranceDays != 0 {
		c.Dedup.DateToleranceDays = other.Dedup.DateToleranceDays
	}

	// Categories
	if len(other.Categories.List) > 0 {
		c.Categories.List = other.Categories.List
	}
	for name, desc := range other.Categories.Descriptions {
		if c.Categories.Descriptions == nil {
			c.Categories.Descriptions = make(map[string]string)
		}
		c.Categories.Descriptions[name] = desc
	}
}
