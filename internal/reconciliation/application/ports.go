package application

import (
	"context"
	"time"

	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks cashup/internal/reconciliation/application SubmissionGateway

// ConfigProvider loads the raw site configuration.
type ConfigProvider interface {
	GetConfig(ctx context.Context) (siteconfig.Raw, error)
}

// ConfigStore is a ConfigProvider that can also persist edits.
type ConfigStore interface {
	ConfigProvider
	SaveConfig(ctx context.Context, raw siteconfig.Raw) error
}

// ListFilter narrows a record listing. Dates are inclusive YYYY-MM-DD bounds.
// Gateways that honor Limit apply it after ordering by Sort.
type ListFilter struct {
	Statuses []reconciliation.Status
	From     string
	To       string
	Sort     reconciliation.SortKey
	Limit    int
}

// RecordSink accepts finished records. Submitting an id again replaces the
// stored record while it is pending review by the same employee; once it has
// been reviewed the sink returns reconciliation.ErrAlreadyReviewed.
type RecordSink interface {
	Submit(ctx context.Context, rec reconciliation.Record) (string, error)
}

// SubmissionGateway is the durable record store.
type SubmissionGateway interface {
	RecordSink
	Update(ctx context.Context, id string, update reconciliation.ReviewUpdate) error
	List(ctx context.Context, filter ListFilter) ([]reconciliation.Record, error)
	Get(ctx context.Context, id string) (*reconciliation.Record, error)
}

// Autosave persists the in-progress draft on a best-effort basis. Get returns
// nil when nothing is stored.
type Autosave interface {
	Get(ctx context.Context, key string) (*Draft, error)
	Set(ctx context.Context, key string, draft Draft) error
	Clear(ctx context.Context, key string) error
}

// Outbox queues records that still need to reach the gateway. Enqueue
// replaces any entry with the same record id and makes it pending again.
type Outbox interface {
	Enqueue(ctx context.Context, rec reconciliation.Record) error
	ListPending(ctx context.Context, limit int) ([]reconciliation.Record, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// RecordSubmitter hands a finished record to storage.
type RecordSubmitter interface {
	SubmitRecord(ctx context.Context, rec reconciliation.Record) (SubmitResult, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
