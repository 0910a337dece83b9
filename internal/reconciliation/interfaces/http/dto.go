package reconciliationhttp

import (
	"github.com/shopspring/decimal"

	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

type draftRequest struct {
	ID              string                             `json:"id" validate:"omitempty,max=64"`
	Date            string                             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Employee        string                             `json:"employee" validate:"omitempty,max=128"`
	TotalSales      decimal.Decimal                    `json:"totalSales"`
	TerminalAmounts []decimal.Decimal                  `json:"terminalAmounts" validate:"max=20"`
	Payouts         decimal.Decimal                    `json:"payouts"`
	Registers       []reconciliation.DenominationCount `json:"registers" validate:"max=10"`
	BagNumber       string                             `json:"bagNumber" validate:"max=64"`
	Comments        string                             `json:"comments" validate:"max=2000"`
}

func (r draftRequest) draft() application.Draft {
	return application.Draft{
		ID:              r.ID,
		Date:            r.Date,
		TotalSales:      r.TotalSales,
		TerminalAmounts: r.TerminalAmounts,
		Payouts:         r.Payouts,
		Registers:       r.Registers,
		BagNumber:       r.BagNumber,
		Comments:        r.Comments,
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type editRequest struct {
	TotalSales    *decimal.Decimal `json:"totalSales"`
	TotalEftpos   *decimal.Decimal `json:"totalEftpos"`
	Payouts       *decimal.Decimal `json:"payouts"`
	ActualBanking *decimal.Decimal `json:"actualBanking"`
	Comments      *string          `json:"comments" validate:"omitempty,max=2000"`
}

func (r editRequest) edit() reconciliation.EditedFinancials {
	return reconciliation.EditedFinancials{
		TotalSales:    r.TotalSales,
		TotalEftpos:   r.TotalEftpos,
		Payouts:       r.Payouts,
		ActualBanking: r.ActualBanking,
		Comments:      r.Comments,
	}
}

type submitResponse struct {
	Record reconciliation.Record `json:"record"`
	Queued bool                  `json:"queued"`
}

type configResponse struct {
	Config siteconfig.Config            `json:"config"`
	Steps  []application.StepDescriptor `json:"steps"`
}

type configEditRequest struct {
	Edits []configEdit `json:"edits" validate:"required,min=1,max=50,dive"`
}

type configEdit struct {
	Op    string `json:"op" validate:"required,oneof=add_register remove_register rename_register add_terminal remove_terminal toggle_terminal"`
	Index int    `json:"index" validate:"min=0"`
	Name  string `json:"name" validate:"max=100"`
}

func (r configEditRequest) edits() []siteconfig.Edit {
	out := make([]siteconfig.Edit, len(r.Edits))
	for i, e := range r.Edits {
		out[i] = siteconfig.Edit{Op: siteconfig.EditOp(e.Op), Index: e.Index, Name: e.Name}
	}
	return out
}
