package categorize

// categorizePrompt is the single-transaction prompt template. The %s
// placeholders are the category list, the corrections block (may be
// empty), and the transaction line.
const categorizePrompt = `You are a personal expense categorizer for an Indian household ledger.

Rules:

1. Choose exactly one category from the list below.
2. Corrections the user made earlier override your own judgment for that merchant.
3. Set confidence between 0.0 and 1.0 for how sure you are.
4. Use "Other" only when nothing else fits.

Categories:
%s
%sTransaction:
%s

Respond with JSON only:
{"category":"...","confidence":0.0}`

// categorizeBatchPrompt is the numbered-list variant for one model call
// over many transactions.
const categorizeBatchPrompt = `You are a personal expense categorizer for an Indian household ledger.

Rules:

1. Categorize every numbered transaction below.
2. Return exactly one entry per transaction, in the same order as the list.
3. Choose categories only from the list below.
4. Corrections the user made earlier override your own judgment for that merchant.
5. Set confidence between 0.0 and 1.0 for each entry.

Categories:
%s
%sTransactions:
%s

Respond with JSON only:
{"categories":[{"category":"...","confidence":0.0}]}`
