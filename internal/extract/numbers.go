package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var reYearLike = regexp.MustCompile(`^\d{4}$`)

// parseAmount parses a currency-ish token ("1,250.00", "$ 300", "0.6580")
// into a decimal. Comma separators and currency markers are stripped.
func parseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseCount parses a piece-count token ("76,080") into a float.
func parseCount(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// plausiblePrice filters value candidates: years and out-of-range numbers
// are invoice metadata (dates, postal codes, phone fragments), not prices.
func plausiblePrice(raw string, d decimal.Decimal) bool {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if reYearLike.MatchString(cleaned) {
		return false
	}
	f, _ := d.Float64()
	return f > 1.0 && f < 1_000_000
}
