package query

// schemaDDL is the ledger schema as shown to the model. Kept in step
// with the migrations in the store package.
const schemaDDL = `CREATE TABLE transactions (
    id               TEXT PRIMARY KEY,
    email_message_id TEXT NOT NULL,  -- source notification email
    date             TEXT NOT NULL,  -- YYYY-MM-DD
    amount           REAL NOT NULL,  -- always positive; see direction
    currency         TEXT NOT NULL,  -- 'INR'
    direction        TEXT NOT NULL,  -- 'debit' (money out) or 'credit' (money in)
    type             TEXT NOT NULL,  -- 'upi', 'credit_card', 'bank_transfer', 'sip', 'loan'
    merchant         TEXT NOT NULL,
    account          TEXT,           -- masked tail like '**1234'
    bank             TEXT,
    reference        TEXT,
    description      TEXT,
    category         TEXT,           -- 'Food', 'Transport', 'Shopping', 'Bills', 'Entertainment', 'Health', 'Education', 'Investment', 'Transfer', 'Other'
    source           TEXT NOT NULL,  -- 'regex' or 'ai'
    confidence       REAL,
    needs_review     INTEGER NOT NULL,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE TABLE duplicate_groups (
    id                       INTEGER PRIMARY KEY,
    kept_transaction_id      TEXT NOT NULL,
    duplicate_transaction_id TEXT NOT NULL UNIQUE,  -- this transaction is a duplicate; skip it in totals
    reason                   TEXT NOT NULL,
    confidence               REAL,
    created_at               TEXT NOT NULL
);

CREATE TABLE category_corrections (
    id                 INTEGER PRIMARY KEY,
    merchant           TEXT NOT NULL,
    description        TEXT,
    original_category  TEXT NOT NULL,
    corrected_category TEXT NOT NULL,
    created_at         TEXT NOT NULL
);`

// sqlPrompt asks for one read-only statement. The %s placeholders are
// the schema and the question.
const sqlPrompt = `You are a SQL generator for a personal expense ledger stored in SQLite.

Rules:

1. Respond with a single read-only SELECT (or WITH) statement and nothing else.
2. Never modify data. No INSERT, UPDATE, DELETE, DDL or PRAGMA.
3. Dates are TEXT in YYYY-MM-DD form; use date() and strftime() for ranges.
4. Amounts are always positive; use direction to tell spending from income.
5. When totaling spending, skip transactions whose id appears in duplicate_groups.duplicate_transaction_id.
6. If the question cannot be answered from this schema, respond with exactly:
SELECT 'CANNOT_ANSWER' as error;

Schema:
%s

Question: %s

SQL:`

// interpretPrompt turns query results back into prose. The %s
// placeholders are the question and the pipe-delimited results.
const interpretPrompt = `You are answering a question about a personal expense ledger using query results.

Rules:

1. Answer the question directly in one or two short sentences.
2. Use the amounts exactly as they appear in the results.
3. Say so plainly when the results are empty.
4. Never invent numbers that are not in the results.

Question: %s

Results:
%s

Answer:`
