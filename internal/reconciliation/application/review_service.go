package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"cashup/internal/observability/metrics"
	reconciliation "cashup/internal/reconciliation/domain"
)

// ReviewService runs manager actions against stored records.
type ReviewService struct {
	gateway SubmissionGateway
	clock   Clock
	logger  logrus.FieldLogger
}

// NewReviewService constructs the service.
func NewReviewService(gateway SubmissionGateway, clock Clock, logger logrus.FieldLogger) (*ReviewService, error) {
	if gateway == nil {
		return nil, errors.New("review service: nil gateway")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReviewService{gateway: gateway, clock: clock, logger: logger}, nil
}

// List returns records matching filter, filtered and ordered in memory so the
// result does not depend on the gateway's own ordering. The gateway only sees
// the limit for date order; other orders are truncated here after sorting.
func (s *ReviewService) List(ctx context.Context, filter ListFilter) ([]reconciliation.Record, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, reconciliation.ErrInvalidStatus
		}
	}
	query := filter
	if filter.Sort != "" && filter.Sort != reconciliation.SortByDate {
		query.Limit = 0
	}
	records, err := s.gateway.List(ctx, query)
	if err != nil {
		return nil, err
	}
	records = reconciliation.FilterByStatus(records, filter.Statuses...)
	records = reconciliation.SortRecords(records, filter.Sort)
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// Get returns one record.
func (s *ReviewService) Get(ctx context.Context, id string) (*reconciliation.Record, error) {
	if id == "" {
		return nil, reconciliation.ErrRecordNotFound
	}
	return s.gateway.Get(ctx, id)
}

// Approve approves a balanced record.
func (s *ReviewService) Approve(ctx context.Context, id, reviewer string) (*reconciliation.Record, error) {
	return s.apply(ctx, "approve", id, reviewer, func(rec reconciliation.Record) (reconciliation.Record, error) {
		return reconciliation.Approve(rec, s.clock.Now())
	})
}

// Reject sends a record back for correction.
func (s *ReviewService) Reject(ctx context.Context, id, reviewer, reason string) (*reconciliation.Record, error) {
	return s.apply(ctx, "reject", id, reviewer, func(rec reconciliation.Record) (reconciliation.Record, error) {
		return reconciliation.Reject(rec, reason, s.clock.Now())
	})
}

// Edit corrects financial figures and recomputes the variance.
func (s *ReviewService) Edit(ctx context.Context, id, reviewer string, edit reconciliation.EditedFinancials) (*reconciliation.Record, error) {
	return s.apply(ctx, "edit", id, reviewer, func(rec reconciliation.Record) (reconciliation.Record, error) {
		return reconciliation.EditAndRecompute(rec, edit, s.clock.Now())
	})
}

func (s *ReviewService) apply(ctx context.Context, action, id, reviewer string, transition func(reconciliation.Record) (reconciliation.Record, error)) (*reconciliation.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		metrics.IncReviewAction(action, metrics.ResultError)
		return nil, err
	}
	if rec == nil {
		metrics.IncReviewAction(action, metrics.ResultError)
		return nil, reconciliation.ErrRecordNotFound
	}

	updated, err := transition(*rec)
	if err != nil {
		metrics.IncReviewAction(action, metrics.ResultRefused)
		return nil, err
	}
	updated.ReviewedBy = reviewer

	if err := s.gateway.Update(ctx, id, updated.ReviewUpdate()); err != nil {
		metrics.IncReviewAction(action, metrics.ResultError)
		return nil, err
	}
	metrics.IncReviewAction(action, metrics.ResultSuccess)
	s.logger.WithFields(logrus.Fields{
		"record_id": id,
		"action":    action,
		"status":    updated.Status,
		"reviewer":  reviewer,
	}).Info("reconciliation reviewed")
	return &updated, nil
}
