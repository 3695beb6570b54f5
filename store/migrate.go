package store

import "fmt"

// migration is one numbered schema step. Steps run in id order inside a
// transaction each and are recorded in the migrations table, so startup
// is idempotent and a failed step rolls back cleanly.
type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
CREATE TABLE raw_emails (
	message_id TEXT PRIMARY KEY,
	from_addr  TEXT NOT NULL,
	subject    TEXT NOT NULL,
	date       TEXT NOT NULL,
	body_text  TEXT NOT NULL,
	body_html  TEXT,
	fetched_at TEXT NOT NULL
);

CREATE TABLE transactions (
	id               TEXT PRIMARY KEY,
	email_message_id TEXT NOT NULL REFERENCES raw_emails(message_id),
	date             TEXT NOT NULL,
	amount           REAL NOT NULL CHECK (amount > 0),
	currency         TEXT NOT NULL DEFAULT 'INR',
	direction        TEXT NOT NULL CHECK (direction IN ('debit', 'credit')),
	type             TEXT NOT NULL CHECK (type IN ('upi', 'credit_card', 'bank_transfer', 'sip', 'loan')),
	merchant         TEXT NOT NULL,
	account          TEXT NOT NULL DEFAULT '',
	bank             TEXT NOT NULL DEFAULT '',
	reference        TEXT,
	description      TEXT,
	category         TEXT,
	source           TEXT NOT NULL CHECK (source IN ('regex', 'ai')),
	confidence       REAL CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
	needs_review     INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,

	UNIQUE (email_message_id, amount, merchant, date)
);

CREATE INDEX idx_transactions_date ON transactions(date);
CREATE INDEX idx_transactions_needs_review ON transactions(needs_review);
CREATE INDEX idx_transactions_category ON transactions(category);

CREATE TABLE category_corrections (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	merchant           TEXT NOT NULL,
	description        TEXT,
	original_category  TEXT NOT NULL,
	corrected_category TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX idx_corrections_merchant ON category_corrections(merchant);

CREATE TABLE duplicate_groups (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	kept_transaction_id      TEXT NOT NULL REFERENCES transactions(id),
	duplicate_transaction_id TEXT NOT NULL UNIQUE REFERENCES transactions(id),
	reason                   TEXT NOT NULL,
	confidence               REAL,
	created_at               TEXT NOT NULL
);

CREATE TABLE sync_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`,
	},
	{
		id:   2,
		name: "eval_flags",
		sql: `
CREATE TABLE eval_flags (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id TEXT NOT NULL REFERENCES transactions(id),
	verdict        TEXT NOT NULL CHECK (verdict IN ('correct', 'wrong')),
	notes          TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX idx_eval_flags_transaction ON eval_flags(transaction_id);
`,
	},
}

// migrate applies pending migrations in order.
func (s *Store) migrate() error {
	for i, m := range migrations {
		if m.id != i+1 {
			return fmt.Errorf("migration ids must be sequential, got %d at position %d", m.id, i)
		}
	}

	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS migrations (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM migrations").Scan(&current); err != nil {
		return fmt.Errorf("read migration state: %w", err)
	}

	for _, m := range migrations {
		if m.id <= current {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.id, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.id, m.name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO migrations (id, name, applied_at) VALUES (?, ?, ?)",
			m.id, m.name, formatTime(nowUTC()),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.id, err)
		}

		s.logger.Info("Applied migration", "id", m.id, "name", m.name)
	}

	return nil
}
