package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// currencyMarkerPattern strips a leading or trailing currency marker.
	currencyMarkerPattern = regexp.MustCompile(`(?i)^(?:rs\.?|inr|₹)\s*|\s*(?:rs\.?|inr|₹)$`)

	// amountPattern finds a currency-marked amount in free text.
	amountPattern = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

	// trailingAmountPattern catches the "500 INR" form.
	trailingAmountPattern = regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*inr\b`)
)

// ParseAmount normalizes a currency string to a positive amount. It strips
// the marker (Rs., INR, ₹) and grouping commas, accepting Indian notation
// like 1,50,000.00, and takes the absolute value; the sign of a movement is
// carried by direction, never by the amount. Empty, unparseable, zero, and
// non-finite inputs are errors.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	s = currencyMarkerPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite amount %q", raw)
	}
	v = math.Abs(v)
	if v == 0 {
		return 0, fmt.Errorf("zero amount %q", raw)
	}
	return v, nil
}

// ExtractAmount finds the first currency-marked amount in free text.
func ExtractAmount(text string) (float64, bool) {
	if m := amountPattern.FindStringSubmatch(text); len(m) > 1 {
		if v, err := ParseAmount(m[1]); err == nil {
			return v, true
		}
	}
	if m := trailingAmountPattern.FindStringSubmatch(text); len(m) > 1 {
		if v, err := ParseAmount(m[1]); err == nil {
			return v, true
		}
	}
	return 0, false
}
