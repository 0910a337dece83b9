package reconciliation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseAmount reads a monetary value from free-form input. Only the leading
// numeric part is used; anything unparseable yields zero.
func ParseAmount(raw string) decimal.Decimal {
	prefix := numericPrefix.FindString(strings.TrimSpace(raw))
	if prefix == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ParseCount reads a whole count from free-form input, truncating any
// fractional part. Unparseable input yields zero. Negative counts are kept.
func ParseCount(raw string) int64 {
	return ParseAmount(raw).IntPart()
}

// ParseMoney is ParseAmount rounded to whole cents.
func ParseMoney(raw string) decimal.Decimal {
	return Cents(ParseAmount(raw))
}

// Cents rounds v to whole cents, the precision records are stored at.
func Cents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Sum adds values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
