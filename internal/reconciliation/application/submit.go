package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"cashup/internal/observability/metrics"
	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

// SubmitResult describes where a submitted record ended up.
type SubmitResult struct {
	StoredID string `json:"storedId,omitempty"`
	Queued   bool   `json:"queued"`
}

// SubmissionError is returned when the gateway refused or could not be
// reached. Queued reports whether the record is waiting in the outbox.
type SubmissionError struct {
	Err    error
	Queued bool
}

func (e *SubmissionError) Error() string {
	if e.Queued {
		return "submission failed, queued for sync: " + e.Err.Error()
	}
	return "submission failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// BuildRecord assembles a record from a draft. All figures are recomputed from
// the draft's counts.
func BuildRecord(cfg siteconfig.Config, draft Draft, employee string, now time.Time) reconciliation.Record {
	draft = draft.Resized(cfg)
	snap := reconciliation.ComputeSnapshot(cfg, draft.Input())

	registers := make([]reconciliation.RegisterEntry, cfg.Registers.Count)
	for i := range registers {
		registers[i] = reconciliation.RegisterEntry{
			Index:     i,
			Name:      cfg.Registers.Names[i],
			Counts:    draft.Registers[i],
			Breakdown: snap.Registers[i].Breakdown,
			Bankable:  snap.Registers[i].Bankable,
		}
	}
	terminals := make([]reconciliation.TerminalEntry, cfg.POSTerminals.Count)
	for i := range terminals {
		terminals[i] = reconciliation.TerminalEntry{
			Index:   i,
			Name:    cfg.POSTerminals.Names[i],
			Enabled: cfg.POSTerminals.Enabled[i],
			Amount:  reconciliation.Cents(draft.TerminalAmounts[i]),
		}
	}

	date := draft.Date
	if date == "" {
		date = now.Format(reconciliation.DateLayout)
	}
	return reconciliation.Record{
		ID:           draft.ID,
		Date:         date,
		Employee:     employee,
		Registers:    registers,
		POSTerminals: terminals,
		Summary: reconciliation.Summary{
			TotalSales:      reconciliation.Cents(draft.TotalSales),
			TotalEftpos:     snap.TerminalsTotal,
			Payouts:         reconciliation.Cents(draft.Payouts),
			ExpectedBanking: snap.ExpectedBanking,
			ActualBanking:   snap.ActualBanking,
			Variance:        snap.Variance,
		},
		Calculations: reconciliation.Calculations{
			IsBalanced:     snap.IsBalanced,
			Classification: snap.Classification,
		},
		Status:      reconciliation.StatusPendingReview,
		Comments:    draft.Comments,
		BagNumber:   draft.BagNumber,
		SubmittedAt: now.UTC(),
	}
}

// Submitter writes a record to the outbox first and then tries the gateway
// directly. A successful direct write marks the queued copy sent; otherwise
// the copy stays for SyncService to drain.
type Submitter struct {
	gateway RecordSink
	outbox  Outbox
	clock   Clock
	logger  logrus.FieldLogger
}

// NewSubmitter constructs a submitter. outbox may be nil, in which case failed
// submissions are not queued.
func NewSubmitter(gateway RecordSink, outbox Outbox, clock Clock, logger logrus.FieldLogger) (*Submitter, error) {
	if gateway == nil {
		return nil, errors.New("submitter: nil gateway")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Submitter{gateway: gateway, outbox: outbox, clock: clock, logger: logger}, nil
}

// SubmitRecord implements RecordSubmitter.
func (s *Submitter) SubmitRecord(ctx context.Context, rec reconciliation.Record) (SubmitResult, error) {
	if rec.ID == "" {
		return SubmitResult{}, errors.New("submitter: record id required")
	}
	start := s.clock.Now()
	log := s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "date": rec.Date})

	queued := false
	if s.outbox != nil {
		pending := rec.Clone()
		pending.Status = reconciliation.StatusPendingSync
		if err := s.outbox.Enqueue(ctx, pending); err != nil {
			log.WithError(err).Warn("outbox enqueue failed")
		} else {
			queued = true
		}
	}

	id, err := s.gateway.Submit(ctx, rec)
	if errors.Is(err, reconciliation.ErrAlreadyReviewed) && queued {
		// a reviewed record cannot be replaced, so the queued copy would never land
		if markErr := s.outbox.MarkSent(ctx, rec.ID); markErr != nil {
			log.WithError(markErr).Warn("outbox discard failed")
		}
		queued = false
	}
	if err != nil {
		result := metrics.ResultError
		if queued {
			result = metrics.ResultQueued
		}
		metrics.ObserveSubmission(result, s.clock.Now().Sub(start))
		log.WithError(err).WithField("queued", queued).Warn("submission failed")
		return SubmitResult{Queued: queued}, &SubmissionError{Err: err, Queued: queued}
	}

	if queued {
		if err := s.outbox.MarkSent(ctx, rec.ID); err != nil {
			log.WithError(err).Warn("outbox mark sent failed")
		}
	}
	metrics.ObserveSubmission(metrics.ResultSuccess, s.clock.Now().Sub(start))
	abs, _ := rec.Summary.Variance.Abs().Float64()
	metrics.ObserveVariance(string(rec.Calculations.Classification), abs)
	log.WithField("variance", rec.Summary.Variance.String()).Info("reconciliation submitted")
	return SubmitResult{StoredID: id}, nil
}
