// Package llm wraps the external model process behind a single invocation
// surface. The process is opaque and pre-authenticated by the user; it is
// invoked as `<bin> -p <prompt> --output-format <format>` with stdout
// authoritative. Output may be the payload directly, a JSON envelope, or a
// fenced code block; normalization lives here, not in callers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultBinary is the model binary invoked when none is configured.
const DefaultBinary = "claude"

// maxDiagnosticLen limits process output quoted in error messages.
const maxDiagnosticLen = 200

// Format selects the model process output format.
type Format string

// Supported output formats.
const (
	FormatJSON       Format = "json"
	FormatText       Format = "text"
	FormatStreamJSON Format = "stream-json"
)

// Invoker is the capability consumed by AI-using components. The concrete
// Client satisfies it; tests substitute a deterministic responder.
type Invoker interface {
	Run(ctx context.Context, prompt string, format Format) (string, error)
	RunJSON(ctx context.Context, prompt string, out any) error
	Available(ctx context.Context) bool
}

// Client is the gateway to the external model process.
type Client struct {
	binary      string
	runner      Runner
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBinary sets the model binary name or path.
func WithBinary(binary string) ClientOption {
	return func(c *Client) {
		c.binary = binary
	}
}

// WithRunner sets a custom process runner.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) {
		c.runner = r
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a model process gateway.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		binary:      DefaultBinary,
		runner:      ExecRunner{},
		retryConfig: DefaultRetryConfig(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run invokes the model process with the given prompt and output format.
// Rate-limited invocations are retried with backoff; stdout is returned
// verbatim on success.
func (c *Client) Run(ctx context.Context, prompt string, format Format) (string, error) {
	return WithRetryValue(ctx, c.retryConfig, func() (string, error) {
		return c.invoke(ctx, prompt, format)
	})
}

// RunJSON invokes the model in JSON output mode, normalizes the response
// (fence stripping, envelope unwrap, comment and trailing-comma cleanup),
// and unmarshals it into out. Callers treat any error as "model unavailable"
// and degrade; nothing here panics.
func (c *Client) RunJSON(ctx context.Context, prompt string, out any) error {
	raw, err := c.Run(ctx, prompt, FormatJSON)
	if err != nil {
		return err
	}

	payload := Normalize(raw)
	if payload == "" {
		return fmt.Errorf("no JSON in model output")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}

// Available reports whether the model binary responds to a version probe.
func (c *Client) Available(ctx context.Context) bool {
	result, err := c.runner.Run(ctx, c.binary, "--version")
	return err == nil && result.ExitCode == 0
}

// invoke executes one model process call and classifies failures.
func (c *Client) invoke(ctx context.Context, prompt string, format Format) (string, error) {
	c.logger.Debug("Invoking model process",
		"binary", c.binary,
		"format", string(format),
		"prompt_len", len(prompt))

	result, err := c.runner.Run(ctx, c.binary, "-p", prompt, "--output-format", string(format))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("run %s: %w", c.binary, err))
	}

	if result.ExitCode != 0 {
		invErr := fmt.Errorf("%s exited with code %d: %s", c.binary, result.ExitCode, diagnostic(result))
		if isRateLimited(result) {
			return "", NewTransientError(invErr)
		}
		return "", NewFatalError(invErr)
	}

	return result.Stdout, nil
}

// rateLimitMarkers are scanned case-insensitively in process output to
// decide whether a failed invocation should be retried.
var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"overloaded",
	"quota exceeded",
}

// isRateLimited reports whether a failed invocation looks rate-limited.
func isRateLimited(result RunResult) bool {
	combined := strings.ToLower(result.Stdout + "\n" + result.Stderr)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(combined, marker) {
			return true
		}
	}
	return false
}

// diagnostic picks the most useful process output for an error message.
func diagnostic(result RunResult) string {
	out := strings.TrimSpace(result.Stderr)
	if out == "" {
		out = strings.TrimSpace(result.Stdout)
	}
	if len(out) > maxDiagnosticLen {
		out = out[:maxDiagnosticLen] + "..."
	}
	return out
}
