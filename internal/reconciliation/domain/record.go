package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

// Status is the review state of a record.
type Status string

const (
	StatusPendingReview      Status = "pending_review"
	StatusPendingSync        Status = "pending_sync"
	StatusVarianceFound      Status = "variance_found"
	StatusRequiresCorrection Status = "requires_correction"
	StatusApproved           Status = "approved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusPendingSync, StatusVarianceFound, StatusRequiresCorrection, StatusApproved:
		return true
	}
	return false
}

// RegisterEntry is one register as submitted.
type RegisterEntry struct {
	Index     int               `json:"index"`
	Name      string            `json:"name"`
	Counts    DenominationCount `json:"counts"`
	Breakdown RegisterBreakdown `json:"breakdown"`
	Bankable  decimal.Decimal   `json:"bankable"`
}

// TerminalEntry is one POS terminal as submitted.
type TerminalEntry struct {
	Index   int             `json:"index"`
	Name    string          `json:"name"`
	Enabled bool            `json:"enabled"`
	Amount  decimal.Decimal `json:"amount"`
}

// Summary holds the headline figures of a record.
type Summary struct {
	TotalSales      decimal.Decimal `json:"totalSales"`
	TotalEftpos     decimal.Decimal `json:"totalEftpos"`
	Payouts         decimal.Decimal `json:"payouts"`
	ExpectedBanking decimal.Decimal `json:"expectedBanking"`
	ActualBanking   decimal.Decimal `json:"actualBanking"`
	Variance        decimal.Decimal `json:"variance"`
}

// Calculations holds derived flags.
type Calculations struct {
	IsBalanced     bool           `json:"isBalanced"`
	Classification Classification `json:"classification"`
}

// Record is a submitted reconciliation.
type Record struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	Employee        string          `json:"employee"`
	Registers       []RegisterEntry `json:"registers"`
	POSTerminals    []TerminalEntry `json:"posTerminals"`
	Summary         Summary         `json:"summary"`
	Calculations    Calculations    `json:"calculations"`
	Status          Status          `json:"status"`
	Comments        string          `json:"comments,omitempty"`
	ManagerComments string          `json:"managerComments,omitempty"`
	BagNumber       string          `json:"bagNumber,omitempty"`
	SubmittedAt     time.Time       `json:"submittedAt"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedBy      string          `json:"reviewedBy,omitempty"`
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Registers = append([]RegisterEntry(nil), r.Registers...)
	r.POSTerminals = append([]TerminalEntry(nil), r.POSTerminals...)
	if r.ReviewedAt != nil {
		at := *r.ReviewedAt
		r.ReviewedAt = &at
	}
	return r
}

// ReviewUpdate is the set of fields a review action may change.
type ReviewUpdate struct {
	Status          Status       `json:"status"`
	Summary         Summary      `json:"summary"`
	Calculations    Calculations `json:"calculations"`
	Comments        string       `json:"comments,omitempty"`
	ManagerComments string       `json:"managerComments,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewedAt,omitempty"`
	ReviewedBy      string       `json:"reviewedBy,omitempty"`
}

// ReviewUpdate extracts the review-owned fields.
func (r Record) ReviewUpdate() ReviewUpdate {
	return ReviewUpdate{
		Status:          r.Status,
		Summary:         r.Summary,
		Calculations:    r.Calculations,
		Comments:        r.Comments,
		ManagerComments: r.ManagerComments,
		ReviewedAt:      r.ReviewedAt,
		ReviewedBy:      r.ReviewedBy,
	}
}

// Apply copies the review-owned fields onto r.
func (u ReviewUpdate) Apply(r Record) Record {
	r = r.Clone()
	r.Status = u.Status
	r.Summary = u.Summary
	r.Calculations = u.Calculations
	r.Comments = u.Comments
	r.ManagerComments = u.ManagerComments
	if u.ReviewedAt != nil {
		at := *u.ReviewedAt
		r.ReviewedAt = &at
	}
	r.ReviewedBy = u.ReviewedBy
	return r
}
