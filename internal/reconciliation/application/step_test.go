package application

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

var reviewDay = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

func mustConfig(t *testing.T, registers, terminals int) siteconfig.Config {
	t.Helper()
	cfg, err := siteconfig.Normalize(siteconfig.Raw{
		Registers:    siteconfig.RawRegisters{Count: siteconfig.IntPtr(registers)},
		POSTerminals: siteconfig.RawTerminals{Count: siteconfig.IntPtr(terminals)},
	})
	require.NoError(t, err)
	return cfg
}

func TestStepAt(t *testing.T) {
	cfg := mustConfig(t, 3, 1)
	assert.Equal(t, 5, StepCount(cfg))

	tests := []struct {
		n    int
		want Step
		ok   bool
	}{
		{0, Step{}, false},
		{1, RegisterStep(0), true},
		{3, RegisterStep(2), true},
		{4, Step{Kind: StepSalesAndPOS}, true},
		{5, Step{Kind: StepBankingReview}, true},
		{6, Step{}, false},
	}
	for _, tt := range tests {
		got, ok := StepAt(cfg, tt.n)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("StepAt(%d): expected %+v/%v, got %+v/%v", tt.n, tt.want, tt.ok, got, ok)
		}
		if ok && got.Number(cfg) != tt.n {
			t.Fatalf("Number round trip for %d gave %d", tt.n, got.Number(cfg))
		}
	}
}

func TestStep_NumberSurvivesCountChange(t *testing.T) {
	small := mustConfig(t, 1, 1)
	large := mustConfig(t, 10, 1)

	sales := Step{Kind: StepSalesAndPOS}
	assert.Equal(t, 2, sales.Number(small))
	assert.Equal(t, 11, sales.Number(large))
	assert.Equal(t, 1, RegisterStep(7).Number(small))
	assert.Equal(t, "Register 8", RegisterStep(7).Label(large))
}

func TestMergeDraft(t *testing.T) {
	cfg := mustConfig(t, 2, 2)
	base := NewDraft(cfg, reviewDay)
	saved := Draft{
		Date:            "2024-01-05",
		TotalSales:      decimal.NewFromInt(42),
		TerminalAmounts: []decimal.Decimal{decimal.NewFromInt(1)},
		Registers:       []reconciliation.DenominationCount{{Notes: reconciliation.Notes{Fives: 3}}},
	}

	merged := MergeDraft(cfg, base, saved)
	assert.Equal(t, base.ID, merged.ID, "missing saved id keeps the fresh one")
	assert.Equal(t, "2024-01-05", merged.Date)
	assert.True(t, merged.TotalSales.Equal(decimal.NewFromInt(42)))
	require.Len(t, merged.Registers, 2)
	assert.Equal(t, int64(3), merged.Registers[0].Notes.Fives)
	assert.Equal(t, reconciliation.DenominationCount{}, merged.Registers[1])
	require.Len(t, merged.TerminalAmounts, 2)
	assert.True(t, merged.TerminalAmounts[1].IsZero())
}

func TestDraftFromRecord_RebuildsSameRecord(t *testing.T) {
	cfg := mustConfig(t, 2, 2)
	draft := NewDraft(cfg, reviewDay)
	draft.Registers[0].Notes.Hundreds = 5
	draft.Registers[1].CoinRolls.Dollar2 = 1
	draft.TerminalAmounts[0] = decimal.RequireFromString("120.40")
	draft.TotalSales = decimal.RequireFromString("820.40")
	draft.BagNumber = "B-7"

	rec := BuildRecord(cfg, draft, "sam", reviewDay)
	again := BuildRecord(cfg, DraftFromRecord(rec), "sam", reviewDay)
	assert.Equal(t, rec.ID, again.ID)
	assert.True(t, rec.Summary.Variance.Equal(again.Summary.Variance))
	assert.True(t, rec.Summary.ActualBanking.Equal(again.Summary.ActualBanking))
	assert.Equal(t, "B-7", again.BagNumber)
}
