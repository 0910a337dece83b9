package reconciliation

import "github.com/shopspring/decimal"

// ComputeBankable is the part of a register total above the reserve, floored
// at zero.
func ComputeBankable(total, reserve decimal.Decimal) decimal.Decimal {
	bankable := total.Sub(reserve)
	if bankable.IsNegative() {
		return decimal.Zero
	}
	return bankable
}

// ComputeActualBanking sums the bankable amount of every given register.
func ComputeActualBanking(breakdowns []RegisterBreakdown, reserve decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range breakdowns {
		total = total.Add(ComputeBankable(b.Total, reserve))
	}
	return total
}
