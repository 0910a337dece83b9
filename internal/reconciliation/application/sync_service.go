package application

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"cashup/internal/observability/metrics"
	reconciliation "cashup/internal/reconciliation/domain"
)

const defaultSyncBatch = 100

// SyncResult reports how many queued records reached the gateway.
type SyncResult struct {
	SyncedCount int `json:"synced_count"`
	TotalCount  int `json:"total_count"`
}

// SyncService drains the outbox into the gateway. Each record is attempted on
// its own; failures stay queued.
type SyncService struct {
	mu      sync.Mutex
	outbox  Outbox
	gateway RecordSink
	clock   Clock
	logger  logrus.FieldLogger
	batch   int
}

// NewSyncService constructs the service. batch <= 0 uses the default.
func NewSyncService(outbox Outbox, gateway RecordSink, clock Clock, logger logrus.FieldLogger, batch int) (*SyncService, error) {
	if outbox == nil {
		return nil, errors.New("sync service: nil outbox")
	}
	if gateway == nil {
		return nil, errors.New("sync service: nil gateway")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if batch <= 0 {
		batch = defaultSyncBatch
	}
	return &SyncService{outbox: outbox, gateway: gateway, clock: clock, logger: logger, batch: batch}, nil
}

// SyncPending attempts every queued record once. Concurrent calls run one
// after another.
func (s *SyncService) SyncPending(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	records, err := s.outbox.ListPending(ctx, s.batch)
	if err != nil {
		metrics.ObserveSync(0, 0, err, s.clock.Now().Sub(start))
		return SyncResult{}, err
	}

	result := SyncResult{TotalCount: len(records)}
	for _, rec := range records {
		log := s.logger.WithField("record_id", rec.ID)
		rec.Status = reconciliation.StatusPendingReview
		_, err := s.gateway.Submit(ctx, rec)
		if errors.Is(err, reconciliation.ErrAlreadyReviewed) {
			log.WithError(err).Error("queued record conflicts with a reviewed record; dropped")
			if markErr := s.outbox.MarkFailed(ctx, rec.ID, err); markErr != nil {
				log.WithError(markErr).Warn("outbox mark failed")
			}
			if markErr := s.outbox.MarkSent(ctx, rec.ID); markErr != nil {
				log.WithError(markErr).Warn("outbox mark sent failed")
			}
			continue
		}
		if err != nil {
			log.WithError(err).Warn("sync submit failed")
			if markErr := s.outbox.MarkFailed(ctx, rec.ID, err); markErr != nil {
				log.WithError(markErr).Warn("outbox mark failed")
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, rec.ID); err != nil {
			log.WithError(err).Warn("outbox mark sent failed")
		}
		result.SyncedCount++
	}

	metrics.ObserveSync(result.SyncedCount, result.TotalCount, nil, s.clock.Now().Sub(start))
	if result.TotalCount > 0 {
		s.logger.WithFields(logrus.Fields{
			"synced": result.SyncedCount,
			"total":  result.TotalCount,
		}).Info("pending sync finished")
	}
	return result, nil
}
