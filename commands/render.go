package commands

import (
	"fmt"
	"strings"

	"github.com/c360studio/expense-tracker/config"
)

// table renders aligned plain-text columns for command output.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) String() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.headers)
	separators := make([]string, len(t.headers))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	writeRow(separators)
	for _, row := range t.rows {
		writeRow(row)
	}
	return b.String()
}

// formatAmount renders an amount with the configured currency code, using
// Indian digit grouping for the en-IN locale (1,50,000.00) and western
// grouping otherwise.
func formatAmount(amount float64, cur config.CurrencyConfig) string {
	whole := fmt.Sprintf("%.2f", amount)
	intPart := whole[:len(whole)-3]
	frac := whole[len(whole)-2:]

	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var grouped string
	if cur.Locale == "en-IN" {
		grouped = groupIndian(intPart)
	} else {
		grouped = groupThousands(intPart)
	}
	if negative {
		grouped = "-" + grouped
	}
	return fmt.Sprintf("%s %s.%s", cur.Code, grouped, frac)
}

// groupIndian inserts commas in Indian notation: the last three digits,
// then pairs (1,50,000).
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// groupThousands inserts commas every three digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, ",")
}

// truncate shortens a cell value for table display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// shortID renders the leading segment of a transaction id.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return truncate(id, 8)
}
