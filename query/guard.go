package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRejected marks a generated statement the guard refused to execute.
var ErrRejected = errors.New("query rejected")

// writeKeywordPattern catches statements that could change data or
// schema. Scanned over the whole comment-stripped statement, string
// literals included; a merchant literally named "Delete" loses a query,
// a prompt-injected write never runs.
var writeKeywordPattern = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|replace|attach|detach|pragma|reindex|vacuum)\b`)

// ValidateReadOnly rejects anything but a single read-only SELECT or
// WITH statement.
func ValidateReadOnly(sql string) error {
	stripped := strings.TrimSpace(stripComments(sql))
	if stripped == "" {
		return fmt.Errorf("%w: empty statement", ErrRejected)
	}

	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: statement must begin with SELECT or WITH", ErrRejected)
	}

	if kw := writeKeywordPattern.FindString(stripped); kw != "" {
		return fmt.Errorf("%w: statement contains %s", ErrRejected, strings.ToUpper(kw))
	}
	return nil
}

// stripComments removes -- line and /* */ block comments without
// touching the contents of string literals or quoted identifiers.
func stripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	const (
		stateNormal = iota
		stateString
		stateIdent
		stateLineComment
		stateBlockComment
	)
	state := stateNormal

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			case ch == '\'':
				state = stateString
				b.WriteRune(ch)
			case ch == '"':
				state = stateIdent
				b.WriteRune(ch)
			default:
				b.WriteRune(ch)
			}
		case stateString:
			b.WriteRune(ch)
			if ch == '\'' {
				// '' escapes a quote inside the literal.
				if next == '\'' {
					b.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}
		case stateIdent:
			b.WriteRune(ch)
			if ch == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				b.WriteRune(ch)
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				b.WriteRune(' ')
				i++
			}
		}
	}
	return b.String()
}
