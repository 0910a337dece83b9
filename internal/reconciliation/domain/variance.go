package reconciliation

import "github.com/shopspring/decimal"

var (
	// BalanceTolerance is the strict threshold for IsBalanced.
	BalanceTolerance = decimal.New(1, -2)
	// MinorVarianceBand is the display band for a minor variance. It is
	// independent from BalanceTolerance and from the site's configured
	// variance tolerance.
	MinorVarianceBand = decimal.NewFromInt(5)
)

// Classification is a display grade for a variance.
type Classification string

const (
	ClassificationExact       Classification = "exact"
	ClassificationMinor       Classification = "minor"
	ClassificationSignificant Classification = "significant"
)

// VarianceResult is the outcome of comparing actual against expected banking.
type VarianceResult struct {
	ExpectedBanking decimal.Decimal `json:"expectedBanking"`
	Variance        decimal.Decimal `json:"variance"`
	IsBalanced      bool            `json:"isBalanced"`
}

// TerminalsTotal sums amounts of enabled terminals. Amounts without a matching
// enabled flag are ignored.
func TerminalsTotal(amounts []decimal.Decimal, enabled []bool) decimal.Decimal {
	total := decimal.Zero
	for i, amount := range amounts {
		if i < len(enabled) && enabled[i] {
			total = total.Add(Cents(amount))
		}
	}
	return total
}

// ComputeVariance derives expected banking and the variance against actual.
// A positive variance means more cash than expected. Inputs are taken at whole
// cents.
func ComputeVariance(totalSales, terminalsTotal, payouts, actualBanking decimal.Decimal) VarianceResult {
	expected := Cents(totalSales).Sub(Cents(terminalsTotal)).Sub(Cents(payouts))
	variance := Cents(actualBanking).Sub(expected)
	return VarianceResult{
		ExpectedBanking: expected,
		Variance:        variance,
		IsBalanced:      IsBalanced(variance),
	}
}

// IsBalanced reports whether |variance| is below BalanceTolerance.
func IsBalanced(variance decimal.Decimal) bool {
	return variance.Abs().LessThan(BalanceTolerance)
}

// Classify grades a variance for display.
func Classify(variance decimal.Decimal) Classification {
	switch {
	case variance.IsZero():
		return ClassificationExact
	case variance.Abs().LessThanOrEqual(MinorVarianceBand):
		return ClassificationMinor
	default:
		return ClassificationSignificant
	}
}
