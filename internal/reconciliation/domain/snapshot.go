package reconciliation

import (
	"github.com/shopspring/decimal"

	siteconfig "cashup/internal/siteconfig/domain"
)

// SnapshotInput is the set of figures a snapshot is computed from.
type SnapshotInput struct {
	TotalSales      decimal.Decimal
	Payouts         decimal.Decimal
	TerminalAmounts []decimal.Decimal
	Registers       []DenominationCount
}

// RegisterResult is one register's computed figures.
type RegisterResult struct {
	Breakdown RegisterBreakdown `json:"breakdown"`
	Bankable  decimal.Decimal   `json:"bankable"`
}

// Snapshot is a consistent set of derived figures for a draft.
type Snapshot struct {
	Registers      []RegisterResult `json:"registers"`
	TerminalsTotal decimal.Decimal  `json:"terminalsTotal"`
	ActualBanking  decimal.Decimal  `json:"actualBanking"`
	VarianceResult
	Classification Classification `json:"classification"`
}

// ComputeSnapshot recomputes every derived figure. It covers exactly the
// registers and terminals in cfg; missing inputs count as zero and surplus
// inputs are ignored.
func ComputeSnapshot(cfg siteconfig.Config, in SnapshotInput) Snapshot {
	counts := siteconfig.Resize(in.Registers, cfg.Registers.Count, func(int) DenominationCount { return DenominationCount{} })
	amounts := siteconfig.Resize(in.TerminalAmounts, cfg.POSTerminals.Count, func(int) decimal.Decimal { return decimal.Zero })

	results := make([]RegisterResult, len(counts))
	actual := decimal.Zero
	for i, c := range counts {
		b := ComputeBreakdown(c)
		bankable := ComputeBankable(b.Total, cfg.Registers.ReserveAmount)
		results[i] = RegisterResult{Breakdown: b, Bankable: bankable}
		actual = actual.Add(bankable)
	}

	terminals := TerminalsTotal(amounts, cfg.POSTerminals.Enabled)
	variance := ComputeVariance(in.TotalSales, terminals, in.Payouts, actual)
	return Snapshot{
		Registers:      results,
		TerminalsTotal: terminals,
		ActualBanking:  actual,
		VarianceResult: variance,
		Classification: Classify(variance.Variance),
	}
}
