package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/c360studio/expense-tracker/llm"
	"github.com/c360studio/expense-tracker/store"
)

const (
	// listPageSize is the message ids requested per listing page.
	listPageSize = 500

	// DefaultFetchBatchSize bounds parallel full-body fetches per batch.
	DefaultFetchBatchSize = 50
)

// Mailbox is the provider capability the sync protocol consumes. The
// concrete Client talks to Gmail; tests substitute a canned mailbox.
type Mailbox interface {
	// List returns all message ids matching the query, newest first.
	List(ctx context.Context, query string) ([]string, error)

	// Fetch retrieves full messages for the ids, preserving input order.
	Fetch(ctx context.Context, ids []string) ([]store.RawEmail, error)
}

// Client reads a Gmail mailbox. Every provider call goes through the
// retry controller so 429 responses back off instead of failing the sync.
type Client struct {
	svc       *gmailapi.Service
	retry     llm.RetryConfig
	batchSize int
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig sets the backoff configuration for provider calls.
func WithRetryConfig(cfg llm.RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithFetchBatchSize caps parallel fetches per batch.
func WithFetchBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient wraps an authenticated Gmail service.
func NewClient(svc *gmailapi.Service, opts ...ClientOption) *Client {
	c := &Client{
		svc:       svc,
		retry:     llm.DefaultRetryConfig(),
		batchSize: DefaultFetchBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List enumerates all matching message ids, following the page cursor.
func (c *Client) List(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		resp, err := llm.WithRetryValue(ctx, c.retry, func() (*gmailapi.ListMessagesResponse, error) {
			call := c.svc.Users.Messages.List("me").Q(query).MaxResults(listPageSize)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			resp, err := call.Context(ctx).Do()
			return resp, classifyProviderError(err)
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	c.logger.Debug("Listed messages", "query", query, "count", len(ids))
	return ids, nil
}

// Fetch retrieves full message bodies in bounded-parallel batches. Each
// batch completes before the next starts; within a batch, fetches run
// concurrently up to the batch size. Results preserve input order;
// messages that vanished between list and fetch are skipped.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]store.RawEmail, error) {
	conv := newHTMLConverter()
	results := make([]*store.RawEmail, len(ids))

	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.batchSize)

		var mu sync.Mutex
		for i := start; i < end; i++ {
			g.Go(func() error {
				msg, err := llm.WithRetryValue(gctx, c.retry, func() (*gmailapi.Message, error) {
					msg, err := c.svc.Users.Messages.Get("me", ids[i]).Format("full").Context(gctx).Do()
					return msg, classifyProviderError(err)
				})
				if err != nil {
					if isNotFound(err) {
						return nil
					}
					return fmt.Errorf("fetch message %s: %w", ids[i], err)
				}

				email := decodeMessage(msg, conv)
				mu.Lock()
				results[i] = &email
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	emails := make([]store.RawEmail, 0, len(ids))
	for _, e := range results {
		if e != nil {
			emails = append(emails, *e)
		}
	}
	return emails, nil
}

// classifyProviderError marks rate-limit responses transient so the retry
// controller backs off; everything else surfaces immediately.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code == 403 && hasRateReason(apiErr)) {
		return llm.NewTransientError(err)
	}
	return err
}

// hasRateReason detects quota errors that Gmail reports as 403.
func hasRateReason(apiErr *googleapi.Error) bool {
	for _, e := range apiErr.Errors {
		switch e.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}
