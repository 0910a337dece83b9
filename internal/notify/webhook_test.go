package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, server.Client())
	alert := Alert{
		Kind:         KindSignificantVariance,
		TenantID:     "tenant-1",
		BusinessDate: "2024-03-01",
		RecordID:     "rec-2",
		Employee:     "sam",
		Variance:     "-12.50",
	}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}

	payload := <-payloadCh
	if payload.MsgType != "text" {
		t.Fatalf("expected text message, got %q", payload.MsgType)
	}
	if payload.Alert.RecordID != "rec-2" {
		t.Fatalf("expected structured alert, got %+v", payload.Alert)
	}
	for _, want := range []string{"Significant variance", "Record: rec-2", "Variance: -12.50"} {
		if !strings.Contains(payload.Text.Content, want) {
			t.Fatalf("content missing %q: %s", want, payload.Text.Content)
		}
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, nil).Notify(context.Background(), Alert{Kind: KindMissedDeadline})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	if err := NewWebhookNotifier("", nil).Notify(context.Background(), Alert{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestFormatAlert_MissedDeadline(t *testing.T) {
	text := FormatAlert(Alert{
		Kind:         KindMissedDeadline,
		TenantID:     "tenant-1",
		BusinessDate: "2024-03-02",
		Deadline:     "23:59",
		Meta:         map[string]string{"timezone": "Australia/Sydney"},
	})
	want := "[Cash-up] No reconciliation before the daily deadline\nTenant: tenant-1\nDate: 2024-03-02\nDeadline: 23:59\ntimezone: Australia/Sydney"
	if text != want {
		t.Fatalf("unexpected text:\n%s", text)
	}
}
