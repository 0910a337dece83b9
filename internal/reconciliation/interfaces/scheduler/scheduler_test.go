package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashup/internal/notify"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	"cashup/internal/reconciliation/infrastructure/memory"
)

type heldLock struct{}

func (heldLock) Error() string { return "held" }
func (heldLock) Locked() bool  { return true }

type fakeLocker struct {
	held  bool
	calls int
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.calls++
	if l.held {
		return heldLock{}
	}
	return fn(ctx)
}

type stubSyncer struct {
	res application.SyncResult
	err error
	n   int
}

func (s *stubSyncer) SyncPending(ctx context.Context) (application.SyncResult, error) {
	s.n++
	return s.res, s.err
}

func TestRunSync_DrainsOutbox(t *testing.T) {
	outbox := memory.NewOutbox()
	repo := memory.NewRecordRepository()
	require.NoError(t, outbox.Enqueue(context.Background(), reconciliation.Record{ID: "a", Date: "2024-03-02", Status: reconciliation.StatusPendingSync}))

	svc, err := application.NewSyncService(outbox, repo, nil, nil, 0)
	require.NoError(t, err)
	locker := &fakeLocker{}
	s, err := New(svc, nil, WithLocker(locker))
	require.NoError(t, err)

	res, err := s.RunSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, application.SyncResult{SyncedCount: 1, TotalCount: 1}, res)
	assert.Equal(t, 1, locker.calls)
	assert.Zero(t, outbox.Len())
}

func TestRunSync_SkipsWhenLocked(t *testing.T) {
	syncer := &stubSyncer{res: application.SyncResult{SyncedCount: 1, TotalCount: 1}}
	s, err := New(syncer, nil, WithLocker(&fakeLocker{held: true}))
	require.NoError(t, err)

	res, err := s.RunSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, application.SyncResult{}, res)
	assert.Zero(t, syncer.n)
}

func TestRunSync_ReportsFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	syncer := &stubSyncer{err: errors.New("outbox unavailable")}
	s, err := New(syncer, nil, WithLogger(logger))
	require.NoError(t, err)

	_, err = s.RunSync(context.Background())
	assert.EqualError(t, err, "outbox unavailable")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "scheduler", entry.Data["component"])
	assert.Equal(t, "outbox_drain", entry.Data["operation"])
}

func TestCheckDeadline(t *testing.T) {
	repo := memory.NewRecordRepository()
	s, err := New(&stubSyncer{}, nil)
	require.NoError(t, err)
	now := time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC)

	ok, err := s.CheckDeadline(context.Background(), repo, now)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Submit(context.Background(), reconciliation.Record{ID: "a", Date: "2024-03-02", Status: reconciliation.StatusPendingReview})
	require.NoError(t, err)
	ok, err = s.CheckDeadline(context.Background(), repo, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckDeadline_AlertsOnMiss(t *testing.T) {
	recorder := &notify.Recorder{}
	s, err := New(&stubSyncer{}, time.UTC, WithNotifier(recorder, "tenant-a"))
	require.NoError(t, err)
	require.NoError(t, s.ScheduleDeadlineCheck(context.Background(), "22:00", memory.NewRecordRepository()))

	now := time.Date(2024, 3, 2, 22, 0, 0, 0, time.UTC)
	ok, err := s.CheckDeadline(context.Background(), memory.NewRecordRepository(), now)
	require.NoError(t, err)
	assert.False(t, ok)

	alerts := recorder.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, notify.KindMissedDeadline, alerts[0].Kind)
	assert.Equal(t, "tenant-a", alerts[0].TenantID)
	assert.Equal(t, "2024-03-02", alerts[0].BusinessDate)
	assert.Equal(t, "22:00", alerts[0].Deadline)
}

func TestSchedule_Validates(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	s, err := New(&stubSyncer{}, time.UTC)
	require.NoError(t, err)
	assert.Error(t, s.ScheduleSync(context.Background(), 0))
	assert.Error(t, s.ScheduleDeadlineCheck(context.Background(), "23:59", nil))
	require.NoError(t, s.ScheduleSync(context.Background(), time.Minute))
	require.NoError(t, s.ScheduleDeadlineCheck(context.Background(), "23:59", memory.NewRecordRepository()))
}
