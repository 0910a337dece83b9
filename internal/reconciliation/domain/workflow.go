package reconciliation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EditedFinancials carries the fields a manager may correct. Nil fields keep
// the record's current value.
type EditedFinancials struct {
	TotalSales    *decimal.Decimal `json:"totalSales,omitempty"`
	TotalEftpos   *decimal.Decimal `json:"totalEftpos,omitempty"`
	Payouts       *decimal.Decimal `json:"payouts,omitempty"`
	ActualBanking *decimal.Decimal `json:"actualBanking,omitempty"`
	Comments      *string          `json:"comments,omitempty"`
}

// Approve marks a balanced record approved.
func Approve(rec Record, now time.Time) (Record, error) {
	if rec.Status == StatusPendingSync {
		return rec, &TransitionError{Action: "approve", Err: ErrNotSynced}
	}
	if !rec.Calculations.IsBalanced {
		return rec, &TransitionError{Action: "approve", Err: ErrNotBalanced}
	}
	out := rec.Clone()
	out.Status = StatusApproved
	out.ReviewedAt = stamp(now)
	return out, nil
}

// Reject sends a record back for correction. reason is required.
func Reject(rec Record, reason string, now time.Time) (Record, error) {
	if rec.Status == StatusPendingSync {
		return rec, &TransitionError{Action: "reject", Err: ErrNotSynced}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return rec, &TransitionError{Action: "reject", Err: ErrReasonRequired}
	}
	out := rec.Clone()
	out.Status = StatusRequiresCorrection
	out.ManagerComments = reason
	out.ReviewedAt = stamp(now)
	return out, nil
}

// EditAndRecompute applies corrected figures and reruns the variance. The
// record becomes approved when balanced and variance_found otherwise, whatever
// its previous status.
func EditAndRecompute(rec Record, edit EditedFinancials, now time.Time) (Record, error) {
	if rec.Status == StatusPendingSync {
		return rec, &TransitionError{Action: "edit", Err: ErrNotSynced}
	}
	out := rec.Clone()
	s := out.Summary
	if edit.TotalSales != nil {
		s.TotalSales = Cents(*edit.TotalSales)
	}
	if edit.TotalEftpos != nil {
		s.TotalEftpos = Cents(*edit.TotalEftpos)
	}
	if edit.Payouts != nil {
		s.Payouts = Cents(*edit.Payouts)
	}
	if edit.ActualBanking != nil {
		s.ActualBanking = Cents(*edit.ActualBanking)
	}
	if edit.Comments != nil {
		out.Comments = *edit.Comments
	}

	result := ComputeVariance(s.TotalSales, s.TotalEftpos, s.Payouts, s.ActualBanking)
	s.ExpectedBanking = result.ExpectedBanking
	s.Variance = result.Variance
	out.Summary = s
	out.Calculations = Calculations{
		IsBalanced:     result.IsBalanced,
		Classification: Classify(result.Variance),
	}
	if result.IsBalanced {
		out.Status = StatusApproved
	} else {
		out.Status = StatusVarianceFound
	}
	out.ReviewedAt = stamp(now)
	return out, nil
}

func stamp(now time.Time) *time.Time {
	at := now.UTC()
	return &at
}
