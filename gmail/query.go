package gmail

import (
	"fmt"
	"strings"
	"time"
)

// BuildQuery assembles the Gmail search string: OR within the sender list,
// OR within the subject-keyword list, AND across the two groups, optionally
// narrowed by an after: date. Empty lists omit their group entirely.
func BuildQuery(senders, keywords []string, after time.Time) string {
	var groups []string

	if clause := orGroup("from", senders); clause != "" {
		groups = append(groups, clause)
	}
	if clause := orGroup("subject", keywords); clause != "" {
		groups = append(groups, clause)
	}
	if !after.IsZero() {
		groups = append(groups, "after:"+after.Format("2006/01/02"))
	}

	return strings.Join(groups, " ")
}

// orGroup renders `(field:a OR field:b)` over the usable entries. Glob
// entries contribute their literal tail when one exists (Gmail matches
// from: substrings, so `*@hdfcbank.net` narrows to `from:hdfcbank.net`);
// patterns with no literal tail are enforced locally only.
func orGroup(field string, values []string) string {
	var terms []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if isGlob(v) {
			v = literalTail(v)
			if v == "" {
				continue
			}
		}
		terms = append(terms, fmt.Sprintf("%s:%s", field, quoteTerm(v)))
	}

	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	default:
		return "(" + strings.Join(terms, " OR ") + ")"
	}
}

// isGlob reports whether a sender entry is a glob pattern.
func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// literalTail returns the literal text after the last glob metacharacter,
// trimmed of a leading @ or dot.
func literalTail(s string) string {
	last := strings.LastIndexAny(s, "*?]")
	if last == len(s)-1 {
		return ""
	}
	return strings.TrimLeft(s[last+1:], "@.")
}

// quoteTerm wraps multi-word terms for the query syntax.
func quoteTerm(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
