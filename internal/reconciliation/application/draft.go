package application

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

// Draft is an employee's unsubmitted reconciliation. Its ID becomes the record
// id, so resubmitting the same draft replaces the record until it is reviewed.
type Draft struct {
	ID              string                             `json:"id"`
	Date            string                             `json:"date"`
	TotalSales      decimal.Decimal                    `json:"totalSales"`
	TerminalAmounts []decimal.Decimal                  `json:"terminalAmounts"`
	Payouts         decimal.Decimal                    `json:"payouts"`
	Registers       []reconciliation.DenominationCount `json:"registers"`
	BagNumber       string                             `json:"bagNumber,omitempty"`
	Comments        string                             `json:"comments,omitempty"`
}

// NewDraft returns a blank draft sized to cfg.
func NewDraft(cfg siteconfig.Config, date time.Time) Draft {
	return Draft{
		ID:   uuid.NewString(),
		Date: date.Format(reconciliation.DateLayout),
	}.Resized(cfg)
}

// Resized returns a copy whose per-register and per-terminal slices match cfg.
func (d Draft) Resized(cfg siteconfig.Config) Draft {
	d.Registers = siteconfig.Resize(d.Registers, cfg.Registers.Count, func(int) reconciliation.DenominationCount {
		return reconciliation.DenominationCount{}
	})
	d.TerminalAmounts = siteconfig.Resize(d.TerminalAmounts, cfg.POSTerminals.Count, func(int) decimal.Decimal {
		return decimal.Zero
	})
	return d
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	d.Registers = append([]reconciliation.DenominationCount(nil), d.Registers...)
	d.TerminalAmounts = append([]decimal.Decimal(nil), d.TerminalAmounts...)
	return d
}

// Input converts the draft to calculator input.
func (d Draft) Input() reconciliation.SnapshotInput {
	return reconciliation.SnapshotInput{
		TotalSales:      d.TotalSales,
		Payouts:         d.Payouts,
		TerminalAmounts: d.TerminalAmounts,
		Registers:       d.Registers,
	}
}

// MergeDraft lays saved values over base. Entries saved for registers or
// terminals that no longer exist are dropped; the result is sized to cfg.
func MergeDraft(cfg siteconfig.Config, base, saved Draft) Draft {
	out := base.Clone()
	if saved.ID != "" {
		out.ID = saved.ID
	}
	if strings.TrimSpace(saved.Date) != "" {
		out.Date = saved.Date
	}
	out.TotalSales = saved.TotalSales
	out.Payouts = saved.Payouts
	if saved.BagNumber != "" {
		out.BagNumber = saved.BagNumber
	}
	if saved.Comments != "" {
		out.Comments = saved.Comments
	}
	out = out.Resized(cfg)
	copy(out.Registers, saved.Registers)
	copy(out.TerminalAmounts, saved.TerminalAmounts)
	return out
}

// DraftFromRecord recovers the employee-entered values of rec.
func DraftFromRecord(rec reconciliation.Record) Draft {
	d := Draft{
		ID:         rec.ID,
		Date:       rec.Date,
		TotalSales: rec.Summary.TotalSales,
		Payouts:    rec.Summary.Payouts,
		BagNumber:  rec.BagNumber,
		Comments:   rec.Comments,
	}
	d.Registers = make([]reconciliation.DenominationCount, len(rec.Registers))
	for i, r := range rec.Registers {
		d.Registers[i] = r.Counts
	}
	d.TerminalAmounts = make([]decimal.Decimal, len(rec.POSTerminals))
	for i, t := range rec.POSTerminals {
		d.TerminalAmounts[i] = t.Amount
	}
	return d
}
