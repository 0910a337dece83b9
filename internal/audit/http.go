package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"cashup/internal/auth"
)

// FromRequest builds an entry for action performed by the caller of r.
func FromRequest(r *http.Request, action, resourceType, resourceID, businessDate string, meta any) Entry {
	id, _ := auth.IdentityFromContext(r.Context())
	entry := Entry{
		TenantID:     id.TenantID,
		Actor:        id.Subject,
		Role:         string(id.Role),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BusinessDate: businessDate,
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if meta != nil {
		if payload, err := json.Marshal(meta); err == nil && string(payload) != "null" {
			entry.Metadata = payload
		}
	}
	return entry
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
