package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// WebhookNotifier posts alerts as a text message to a chat webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
	Alert   Alert       `json:"alert"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

// Notify posts alert to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	body, err := json.Marshal(webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: FormatAlert(alert)},
		Alert:   alert,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: status %d", resp.StatusCode)
	}
	return nil
}

// FormatAlert renders alert as plain text.
func FormatAlert(alert Alert) string {
	var b strings.Builder
	switch alert.Kind {
	case KindMissedDeadline:
		b.WriteString("[Cash-up] No reconciliation before the daily deadline\n")
	case KindSignificantVariance:
		b.WriteString("[Cash-up] Significant variance submitted\n")
	default:
		b.WriteString("[Cash-up]\n")
	}
	if alert.TenantID != "" {
		fmt.Fprintf(&b, "Tenant: %s\n", alert.TenantID)
	}
	if alert.BusinessDate != "" {
		fmt.Fprintf(&b, "Date: %s\n", alert.BusinessDate)
	}
	if alert.Deadline != "" {
		fmt.Fprintf(&b, "Deadline: %s\n", alert.Deadline)
	}
	if alert.RecordID != "" {
		fmt.Fprintf(&b, "Record: %s\n", alert.RecordID)
	}
	if alert.Employee != "" {
		fmt.Fprintf(&b, "Employee: %s\n", alert.Employee)
	}
	if alert.Variance != "" {
		fmt.Fprintf(&b, "Variance: %s\n", alert.Variance)
	}
	keys := make([]string, 0, len(alert.Meta))
	for k := range alert.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, alert.Meta[k])
	}
	return strings.TrimSpace(b.String())
}

// Recorder keeps alerts in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

// Notify records alert.
func (r *Recorder) Notify(_ context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

// Alerts returns the recorded alerts.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
