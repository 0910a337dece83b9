package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"cashup/internal/notify"
	"cashup/internal/observability/logging"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
)

const syncLockKey = "cashup:lock:sync"

// Syncer drains queued records.
type Syncer interface {
	SyncPending(ctx context.Context) (application.SyncResult, error)
}

// Lister lists stored records.
type Lister interface {
	List(ctx context.Context, filter application.ListFilter) ([]reconciliation.Record, error)
}

// Locker serializes a job across processes. When the lock is held elsewhere
// it returns an error with a Locked() bool method reporting true and does not
// call fn.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Scheduler runs the periodic outbox drain and the daily deadline check.
type Scheduler struct {
	cron     *gocron.Scheduler
	syncer   Syncer
	locker   Locker
	notifier notify.Notifier
	tenantID string
	deadline string
	logger   logrus.FieldLogger
	loc      *time.Location
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLocker runs each drain under a distributed lock.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

// WithNotifier alerts tenantID's managers when a deadline passes without a
// record.
func WithNotifier(notifier notify.Notifier, tenantID string) Option {
	return func(s *Scheduler) {
		s.notifier = notifier
		s.tenantID = tenantID
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a scheduler in loc. A nil loc means UTC.
func New(syncer Syncer, loc *time.Location, opts ...Option) (*Scheduler, error) {
	if syncer == nil {
		return nil, errors.New("scheduler: nil syncer")
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:   gocron.NewScheduler(loc),
		syncer: syncer,
		logger: logrus.StandardLogger(),
		loc:    loc,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron.SingletonModeAll()
	return s, nil
}

// ScheduleSync drains the outbox every interval.
func (s *Scheduler) ScheduleSync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("scheduler: sync interval must be positive")
	}
	_, err := s.cron.Every(interval).Do(func() {
		_, _ = s.RunSync(ctx)
	})
	return err
}

// ScheduleDeadlineCheck warns once a day at deadline ("HH:MM", scheduler
// time zone) when no record exists for that day.
func (s *Scheduler) ScheduleDeadlineCheck(ctx context.Context, deadline string, lister Lister) error {
	if lister == nil {
		return errors.New("scheduler: nil lister")
	}
	if deadline == "" {
		return nil
	}
	s.deadline = deadline
	_, err := s.cron.Every(1).Day().At(deadline).Do(func() {
		_, _ = s.CheckDeadline(ctx, lister, time.Now().In(s.loc))
	})
	return err
}

// RunSync performs one drain. A drain skipped because another process holds
// the lock returns a zero result and no error.
func (s *Scheduler) RunSync(ctx context.Context) (application.SyncResult, error) {
	var res application.SyncResult
	run := func(ctx context.Context) error {
		var err error
		res, err = s.syncer.SyncPending(ctx)
		return err
	}
	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, syncLockKey, run)
	} else {
		err = run(ctx)
	}
	switch {
	case err == nil:
		if res.TotalCount > 0 {
			s.logger.WithFields(logrus.Fields{
				"synced": res.SyncedCount,
				"total":  res.TotalCount,
			}).Info("outbox drained")
		}
	case isLocked(err):
		s.logger.Debug("outbox drain skipped; lock held elsewhere")
		return application.SyncResult{}, nil
	default:
		logging.LogError(s.logger, "scheduler", "outbox_drain", nil, err)
	}
	return res, err
}

// CheckDeadline reports whether a record exists for the calendar day of now.
func (s *Scheduler) CheckDeadline(ctx context.Context, lister Lister, now time.Time) (bool, error) {
	day := now.Format(reconciliation.DateLayout)
	records, err := lister.List(ctx, application.ListFilter{From: day, To: day, Limit: 1})
	if err != nil {
		logging.LogError(s.logger, "scheduler", "deadline_check", map[string]string{"date": day}, err)
		return false, err
	}
	if len(records) == 0 {
		s.logger.WithField("date", day).Warn("no reconciliation submitted before the daily deadline")
		if s.notifier != nil {
			alert := notify.Alert{
				Kind:         notify.KindMissedDeadline,
				TenantID:     s.tenantID,
				BusinessDate: day,
				Deadline:     s.deadline,
				Meta:         map[string]string{"timezone": s.loc.String()},
			}
			if err := s.notifier.Notify(ctx, alert); err != nil {
				s.logger.WithError(err).Warn("missed deadline alert failed")
			}
		}
		return false, nil
	}
	return true, nil
}

// Start runs scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

type lockedError interface {
	Locked() bool
}

func isLocked(err error) bool {
	var le lockedError
	return errors.As(err, &le) && le.Locked()
}
