package reconciliation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewTime = time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

func balancedRecord() Record {
	return Record{
		ID:       "rec-1",
		Date:     "2024-03-01",
		Employee: "sam",
		Summary: Summary{
			TotalSales:      d("1000"),
			TotalEftpos:     d("300"),
			Payouts:         d("50"),
			ExpectedBanking: d("650"),
			ActualBanking:   d("650"),
			Variance:        decimal.Zero,
		},
		Calculations: Calculations{IsBalanced: true, Classification: ClassificationExact},
		Status:       StatusPendingReview,
	}
}

func TestApprove_Balanced(t *testing.T) {
	rec := balancedRecord()
	out, err := Approve(rec, reviewTime)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	require.NotNil(t, out.ReviewedAt)
	assert.True(t, out.ReviewedAt.Equal(reviewTime))
	assert.Equal(t, StatusPendingReview, rec.Status)
	assert.Nil(t, rec.ReviewedAt)
}

func TestApprove_UnbalancedLeavesRecordUntouched(t *testing.T) {
	rec := balancedRecord()
	rec.Summary.Variance = d("-3")
	rec.Calculations = Calculations{IsBalanced: false, Classification: ClassificationMinor}
	rec.Status = StatusVarianceFound

	out, err := Approve(rec, reviewTime)
	require.Error(t, err)

	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "approve", terr.Action)
	assert.ErrorIs(t, err, ErrNotBalanced)
	assert.Equal(t, StatusVarianceFound, out.Status)
	assert.Nil(t, out.ReviewedAt)
}

func TestReject(t *testing.T) {
	rec := balancedRecord()

	_, err := Reject(rec, "   ", reviewTime)
	assert.ErrorIs(t, err, ErrReasonRequired)

	out, err := Reject(rec, "recount register 2", reviewTime)
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresCorrection, out.Status)
	assert.Equal(t, "recount register 2", out.ManagerComments)
	assert.NotNil(t, out.ReviewedAt)
}

func TestScenarioD_EditMovesApprovedToVarianceFound(t *testing.T) {
	rec, err := Approve(balancedRecord(), reviewTime)
	require.NoError(t, err)

	sales := d("1012.50")
	out, err := EditAndRecompute(rec, EditedFinancials{TotalSales: &sales}, reviewTime.Add(time.Hour))
	require.NoError(t, err)

	assertMoney(t, "662.50", out.Summary.ExpectedBanking)
	assertMoney(t, "-12.50", out.Summary.Variance)
	assert.False(t, out.Calculations.IsBalanced)
	assert.Equal(t, ClassificationSignificant, out.Calculations.Classification)
	assert.Equal(t, StatusVarianceFound, out.Status)
	assert.True(t, out.ReviewedAt.Equal(reviewTime.Add(time.Hour)))
	assert.Equal(t, StatusApproved, rec.Status)
}

func TestEditAndRecompute_BalancesRecord(t *testing.T) {
	rec := balancedRecord()
	rec.Summary.ActualBanking = d("640")
	rec.Summary.Variance = d("-10")
	rec.Calculations = Calculations{IsBalanced: false, Classification: ClassificationSignificant}
	rec.Status = StatusVarianceFound

	payouts := d("60")
	note := "missed a payout receipt"
	out, err := EditAndRecompute(rec, EditedFinancials{Payouts: &payouts, Comments: &note}, reviewTime)
	require.NoError(t, err)
	assertMoney(t, "640", out.Summary.ExpectedBanking)
	assert.True(t, out.Summary.Variance.IsZero())
	assert.Equal(t, StatusApproved, out.Status)
	assert.Equal(t, note, out.Comments)
}

func TestTransitions_RefusePendingSync(t *testing.T) {
	rec := balancedRecord()
	rec.Status = StatusPendingSync

	_, err := Approve(rec, reviewTime)
	assert.ErrorIs(t, err, ErrNotSynced)
	_, err = Reject(rec, "no", reviewTime)
	assert.ErrorIs(t, err, ErrNotSynced)
	_, err = EditAndRecompute(rec, EditedFinancials{}, reviewTime)
	assert.ErrorIs(t, err, ErrNotSynced)
}

func TestReviewUpdate_RoundTrip(t *testing.T) {
	rec := balancedRecord()
	approved, err := Approve(rec, reviewTime)
	require.NoError(t, err)
	approved.ReviewedBy = "morgan"

	merged := approved.ReviewUpdate().Apply(rec)
	assert.Equal(t, StatusApproved, merged.Status)
	assert.Equal(t, "morgan", merged.ReviewedBy)
	assert.Equal(t, rec.ID, merged.ID)
	assert.Nil(t, rec.ReviewedAt)
}

func TestQueryViews(t *testing.T) {
	records := []Record{
		{ID: "a", Date: "2024-03-01", Status: StatusApproved, Summary: Summary{Variance: d("2")}},
		{ID: "b", Date: "2024-03-03", Status: StatusVarianceFound, Summary: Summary{Variance: d("-7.5")}},
		{ID: "c", Date: "2024-03-02", Status: StatusVarianceFound, Summary: Summary{Variance: d("2")}},
		{ID: "e", Date: "2024-03-03", Status: StatusPendingReview, Summary: Summary{Variance: d("-2")}},
	}

	ids := func(rs []Record) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"b", "c"}, ids(FilterByStatus(records, StatusVarianceFound)))
	assert.Len(t, FilterByStatus(records), 4)
	assert.Equal(t, []string{"b", "e", "c", "a"}, ids(SortRecords(records, SortByDate)))
	assert.Equal(t, []string{"b", "a", "c", "e"}, ids(SortRecords(records, SortByVariance)))
	assert.Equal(t, "a", records[0].ID, "sorting must not reorder the input")
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPendingSync.Valid())
	assert.False(t, Status("archived").Valid())
}
