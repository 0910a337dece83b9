package memory

import (
	"context"
	"sync"

	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
)

// RecordRepository is an in-memory SubmissionGateway.
type RecordRepository struct {
	mu      sync.RWMutex
	records map[string]reconciliation.Record
	order   []string
}

// NewRecordRepository constructs an empty repository.
func NewRecordRepository() *RecordRepository {
	return &RecordRepository{records: make(map[string]reconciliation.Record)}
}

// Submit stores rec. A record with an existing id is replaced while it is
// still pending review by the same employee; otherwise ErrAlreadyReviewed.
func (r *RecordRepository) Submit(ctx context.Context, rec reconciliation.Record) (string, error) {
	if rec.ID == "" {
		return "", reconciliation.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.records[rec.ID]; ok {
		if stored.Status != reconciliation.StatusPendingReview || stored.Employee != rec.Employee {
			return "", reconciliation.ErrAlreadyReviewed
		}
		r.records[rec.ID] = rec.Clone()
		return rec.ID, nil
	}
	r.records[rec.ID] = rec.Clone()
	r.order = append(r.order, rec.ID)
	return rec.ID, nil
}

// Update applies a review update.
func (r *RecordRepository) Update(ctx context.Context, id string, update reconciliation.ReviewUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return reconciliation.ErrRecordNotFound
	}
	r.records[id] = update.Apply(rec)
	return nil
}

// List returns records in insertion order, narrowed by status and date.
func (r *RecordRepository) List(ctx context.Context, filter application.ListFilter) ([]reconciliation.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []reconciliation.Record
	for _, id := range r.order {
		rec := r.records[id]
		if filter.From != "" && rec.Date < filter.From {
			continue
		}
		if filter.To != "" && rec.Date > filter.To {
			continue
		}
		out = append(out, rec.Clone())
	}
	return reconciliation.FilterByStatus(out, filter.Statuses...), nil
}

// Get returns a record by id.
func (r *RecordRepository) Get(ctx context.Context, id string) (*reconciliation.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, reconciliation.ErrRecordNotFound
	}
	out := rec.Clone()
	return &out, nil
}
