package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultTable = "audit_logs"

// Repository stores audit entries in Postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db, table: defaultTable}
}

func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	entry = prepare(entry)
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	id, tenant_id, actor, role, action, resource_type, resource_id, business_date,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::date, $9, $10, $11, $12, $13
)`, r.table),
		entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.BusinessDate,
		nullJSON(entry.Metadata), entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

func (r *Repository) Trail(ctx context.Context, tenantID, resourceType, resourceID string) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, actor, role, action, COALESCE(to_char(business_date, 'YYYY-MM-DD'), ''),
	metadata, payload_digest, ip, user_agent, created_at
FROM %s
WHERE tenant_id = $1 AND resource_type = $2 AND resource_id = $3
ORDER BY created_at ASC`, r.table), tenantID, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{TenantID: tenantID, ResourceType: resourceType, ResourceID: resourceID}
		var metadata []byte
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.Actor, &e.Role, &e.Action, &e.BusinessDate,
			&metadata, &e.PayloadDigest, &e.IP, &e.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		e.Metadata = metadata
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
