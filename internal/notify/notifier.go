package notify

import "context"

// Kinds of alert sent to managers.
const (
	KindMissedDeadline      = "missed_deadline"
	KindSignificantVariance = "significant_variance"
)

// Alert is a message for the managers of one tenant.
type Alert struct {
	Kind         string            `json:"kind"`
	TenantID     string            `json:"tenant_id"`
	BusinessDate string            `json:"business_date"`
	RecordID     string            `json:"record_id,omitempty"`
	Employee     string            `json:"employee,omitempty"`
	Variance     string            `json:"variance,omitempty"`
	Deadline     string            `json:"deadline,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// Notifier sends alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
