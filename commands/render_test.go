package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/expense-tracker/config"
)

func TestFormatAmountIndianGrouping(t *testing.T) {
	inr := config.CurrencyConfig{Code: "INR", Locale: "en-IN"}

	tests := []struct {
		amount float64
		want   string
	}{
		{150000, "INR 1,50,000.00"},
		{1500000, "INR 15,00,000.00"},
		{500, "INR 500.00"},
		{1234.5, "INR 1,234.50"},
		{0, "INR 0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(tt.amount, inr))
	}
}

func TestFormatAmountWesternGrouping(t *testing.T) {
	usd := config.CurrencyConfig{Code: "USD", Locale: "en-US"}
	assert.Equal(t, "USD 150,000.00", formatAmount(150000, usd))
	assert.Equal(t, "USD 1,234.50", formatAmount(1234.5, usd))
}

func TestTableAlignsColumns(t *testing.T) {
	tbl := newTable("ID", "Merchant")
	tbl.addRow("t1", "Swiggy")
	tbl.addRow("longer-id", "Zepto")

	out := tbl.String()
	assert.Contains(t, out, "ID         Merchant")
	assert.Contains(t, out, "t1         Swiggy")
	assert.Contains(t, out, "longer-id  Zepto")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long st...", truncate("long string here", 10))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "a1b2c3d4", shortID("a1b2c3d4-e5f6-7890-abcd-ef0123456789"))
	assert.Equal(t, "plainid", shortID("plainid"))
}
