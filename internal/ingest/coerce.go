package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Source exports mix European ("1.234,56") and US ("1,234.56") numeric
// formatting. A trailing comma followed by one or two digits marks the comma
// as the decimal separator; everything else treats commas as thousands.
var (
	commaDecimalRe = regexp.MustCompile(`,\d{1,2}$`)
	currencyRe     = regexp.MustCompile(`[€$£]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// CoerceMoney converts a raw cell like "1.234,56 €", "1,234.56" or "1234" to
// a float. The second return is false when the cell cannot be parsed.
func CoerceMoney(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	// already numeric
	if d, err := decimal.NewFromString(s); err == nil {
		return d.InexactFloat64(), true
	}
	s = currencyRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, "")
	s = normalizeDecimalSeparator(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// CoercePercent converts "12,5%", "12.5%", "0.125" or "12.5" to a fraction in
// [0,1]. Values above 1 are read as 0..100 and divided by 100.
func CoercePercent(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, "%", "")
	s = whitespaceRe.ReplaceAllString(s, "")
	s = normalizeDecimalSeparator(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	v := d.InexactFloat64()
	if v > 1 {
		v = v / 100.0
	}
	return v, true
}

func normalizeDecimalSeparator(s string) string {
	if commaDecimalRe.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	return strings.ReplaceAll(s, ",", "")
}

// MoneyColumn coerces every cell of a column, returning same-length value and
// parse-success slices. Failed cells carry zero values.
func MoneyColumn(cells []string) ([]float64, []bool) {
	vals := make([]float64, len(cells))
	ok := make([]bool, len(cells))
	for i, c := range cells {
		vals[i], ok[i] = CoerceMoney(c)
	}
	return vals, ok
}

// PercentColumn is the percent-coercion counterpart of MoneyColumn.
func PercentColumn(cells []string) ([]float64, []bool) {
	vals := make([]float64, len(cells))
	ok := make([]bool, len(cells))
	for i, c := range cells {
		vals[i], ok[i] = CoercePercent(c)
	}
	return vals, ok
}
