package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"cashup/internal/auth"
)

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/reconciliations/rec-1/approve", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 172.16.0.1")
	req.Header.Set("User-Agent", "till-tablet")
	req = req.WithContext(auth.WithIdentity(context.Background(), "tenant-a", auth.RoleManager, "morgan"))

	entry := FromRequest(req, "reconciliation.approve", ResourceReconciliation, "rec-1", "2024-03-01", map[string]any{"status": "approved"})
	if entry.TenantID != "tenant-a" || entry.Actor != "morgan" || entry.Role != "manager" {
		t.Fatalf("identity not copied: %+v", entry)
	}
	if entry.IP != "10.0.0.7" || entry.UserAgent != "till-tablet" {
		t.Fatalf("request details not copied: ip=%q ua=%q", entry.IP, entry.UserAgent)
	}
	if string(entry.Metadata) != `{"status":"approved"}` {
		t.Fatalf("unexpected metadata: %s", entry.Metadata)
	}

	var none map[string]any
	if got := FromRequest(req, "x", ResourceReconciliation, "rec-1", "", none); got.Metadata != nil {
		t.Fatalf("expected no metadata, got %s", got.Metadata)
	}
}

func TestClientIP_Fallbacks(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.4:5555"
	if got := clientIP(req); got != "192.168.1.4" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Real-IP", " 10.1.1.1 ")
	if got := clientIP(req); got != "10.1.1.1" {
		t.Fatalf("expected real ip, got %q", got)
	}
}

func TestMemoryLogger_Trail(t *testing.T) {
	logger := &MemoryLogger{}
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{TenantID: "tenant-a", ResourceType: ResourceReconciliation, ResourceID: "rec-1", Action: "reconciliation.approve", CreatedAt: base.Add(time.Minute)},
		{TenantID: "tenant-a", ResourceType: ResourceReconciliation, ResourceID: "rec-1", Action: "reconciliation.submit", CreatedAt: base},
		{TenantID: "tenant-a", ResourceType: ResourceReconciliation, ResourceID: "rec-2", Action: "reconciliation.submit", CreatedAt: base},
		{TenantID: "tenant-b", ResourceType: ResourceReconciliation, ResourceID: "rec-1", Action: "reconciliation.submit", CreatedAt: base},
	}
	for _, e := range entries {
		if err := logger.Log(context.Background(), e); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	trail, err := logger.Trail(context.Background(), "tenant-a", ResourceReconciliation, "rec-1")
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 || trail[0].Action != "reconciliation.submit" || trail[1].Action != "reconciliation.approve" {
		t.Fatalf("unexpected trail: %+v", trail)
	}
	if trail[0].ID == "" {
		t.Fatalf("expected generated id")
	}
}
