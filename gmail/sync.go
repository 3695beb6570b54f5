package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/store"
)

// SyncOptions tune one ingestion run.
type SyncOptions struct {
	// Since overrides the sync window start. User intent wins over the
	// stored cursor; the zero time means "use the cursor".
	Since time.Time
}

// SyncResult summarizes one ingestion run. NewMessageIDs feeds the parsing
// pipeline so only freshly stored emails are parsed.
type SyncResult struct {
	MessagesFound   int
	NewEmailsStored int
	NewMessageIDs   []string
	SyncTimestamp   time.Time
}

// Syncer runs the ingestion protocol: list matching message ids, fetch
// bodies in bounded batches, persist raw emails, advance the cursor.
type Syncer struct {
	mailbox Mailbox
	store   *store.Store
	cfg     *config.Config
	logger  *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithSyncLogger sets the logger.
func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// NewSyncer wires the sync protocol over a mailbox and the store.
func NewSyncer(mailbox Mailbox, st *store.Store, cfg *config.Config, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		mailbox: mailbox,
		store:   st,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one ingestion pass. The window start is opts.Since when given,
// else the stored last_sync_timestamp, else now minus the configured
// lookback. The cursor advances only after the batch insert succeeds, so a
// failed run is retried over the same window.
func (s *Syncer) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	since, err := s.windowStart(ctx, opts)
	if err != nil {
		return SyncResult{}, err
	}

	started := time.Now().UTC()
	query := BuildQuery(s.cfg.Gmail.Senders, s.cfg.Gmail.SubjectKeywords, since)
	s.logger.Info("Syncing mailbox", "query", query, "since", since.Format("2006-01-02"))

	ids, err := s.mailbox.List(ctx, query)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync: %w", err)
	}

	result := SyncResult{
		MessagesFound: len(ids),
		SyncTimestamp: started,
	}
	if len(ids) == 0 {
		if err := s.recordCursor(ctx, started, "", 0); err != nil {
			return result, err
		}
		return result, nil
	}

	emails, err := s.mailbox.Fetch(ctx, ids)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync: %w", err)
	}
	emails = s.filterSenders(emails)

	inserted, err := s.store.InsertRawEmails(ctx, emails)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync: persist raw emails: %w", err)
	}

	result.NewEmailsStored = len(inserted)
	result.NewMessageIDs = inserted

	if err := s.recordCursor(ctx, started, ids[0], len(inserted)); err != nil {
		return result, err
	}

	s.logger.Info("Sync complete",
		"found", result.MessagesFound,
		"stored", result.NewEmailsStored)
	return result, nil
}

// windowStart resolves the sync window start: caller override, then stored
// cursor, then the default lookback.
func (s *Syncer) windowStart(ctx context.Context, opts SyncOptions) (time.Time, error) {
	if !opts.Since.IsZero() {
		return opts.Since, nil
	}

	last, err := s.store.LastSyncTime(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("sync: read cursor: %w", err)
	}
	if !last.IsZero() {
		return last, nil
	}

	return time.Now().UTC().AddDate(0, -s.cfg.Sync.DefaultLookbackMonths, 0), nil
}

// recordCursor advances the sync state after a successful pass.
func (s *Syncer) recordCursor(ctx context.Context, started time.Time, firstID string, stored int) error {
	if err := s.store.SetLastSyncTime(ctx, started); err != nil {
		return fmt.Errorf("sync: record cursor: %w", err)
	}
	if firstID != "" {
		if err := s.store.SetLastMessageID(ctx, firstID); err != nil {
			return fmt.Errorf("sync: record cursor: %w", err)
		}
	}
	if stored > 0 {
		if _, err := s.store.IncrementSyncedCount(ctx, stored); err != nil {
			return fmt.Errorf("sync: record cursor: %w", err)
		}
	}
	return nil
}

// filterSenders drops fetched messages whose From address matches no
// allow-list entry. The provider-side query already narrows by sender, but
// glob entries are only enforceable here.
func (s *Syncer) filterSenders(emails []store.RawEmail) []store.RawEmail {
	senders := s.cfg.Gmail.Senders
	if len(senders) == 0 {
		return emails
	}

	kept := emails[:0]
	for _, e := range emails {
		if matchesSender(fromAddress(e.From), senders) {
			kept = append(kept, e)
		} else {
			s.logger.Debug("Dropping message from unlisted sender", "from", e.From, "id", e.MessageID)
		}
	}
	return kept
}

// matchesSender checks an address against the allow-list: exact
// case-insensitive match, or glob match for pattern entries.
func matchesSender(addr string, senders []string) bool {
	for _, entry := range senders {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if isGlob(entry) {
			if ok, err := doublestar.Match(entry, addr); err == nil && ok {
				return true
			}
			continue
		}
		if entry == addr {
			return true
		}
	}
	return false
}
