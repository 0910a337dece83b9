package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	reconciliation "cashup/internal/reconciliation/domain"
)

const defaultOutboxTable = "reconciliation_outbox"

// OutboxStore is a Postgres queue of records awaiting the gateway. The row id
// is the record id.
type OutboxStore struct {
	db       *sql.DB
	table    string
	tenantID string
}

// OutboxOption configures the outbox store.
type OutboxOption func(*OutboxStore)

// WithOutboxTable overrides the table name.
func WithOutboxTable(table string) OutboxOption {
	return func(store *OutboxStore) {
		if table != "" {
			store.table = table
		}
	}
}

// NewOutboxStore constructs an outbox store.
func NewOutboxStore(db *sql.DB, tenantID string, opts ...OutboxOption) (*OutboxStore, error) {
	if db == nil {
		return nil, errors.New("outbox store: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("outbox store: tenant id required")
	}
	store := &OutboxStore{db: db, table: defaultOutboxTable, tenantID: tenantID}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Enqueue writes rec as pending. A row with the same id takes the new payload
// and is reopened if it was already sent.
func (s *OutboxStore) Enqueue(ctx context.Context, rec reconciliation.Record) error {
	if s == nil || s.db == nil {
		return errors.New("outbox store: nil db")
	}
	if rec.ID == "" {
		return errors.New("outbox store: empty record id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	payload,
	status,
	attempts,
	created_at
) VALUES (
	$1, $2, $3, 'pending', 0, $4
)
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, status = 'pending', attempts = 0,
	last_error = '', sent_at = NULL
WHERE %s.tenant_id = EXCLUDED.tenant_id`, s.table, s.table)

	_, err = s.db.ExecContext(ctx, query, rec.ID, s.tenantID, payload, time.Now().UTC())
	return err
}

// ListPending returns pending records, oldest first.
func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]reconciliation.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("outbox store: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, payload
FROM %s
WHERE tenant_id = $1 AND status = 'pending'
ORDER BY created_at ASC
LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, s.tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconciliation.Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var rec reconciliation.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("outbox store: decode %s: %w", id, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSent marks the record as delivered.
func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("outbox store: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = 'sent', sent_at = $1
WHERE tenant_id = $2 AND id = $3`, s.table)
	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), s.tenantID, id)
	return err
}

// MarkFailed increments attempts and keeps the record pending.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string, cause error) error {
	if s == nil || s.db == nil {
		return errors.New("outbox store: nil db")
	}
	var lastError string
	if cause != nil {
		lastError = cause.Error()
	}
	query := fmt.Sprintf(`
UPDATE %s
SET attempts = attempts + 1, last_error = $1
WHERE tenant_id = $2 AND id = $3`, s.table)
	_, err := s.db.ExecContext(ctx, query, lastError, s.tenantID, id)
	return err
}

// CountPending returns the number of pending rows.
func (s *OutboxStore) CountPending(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("outbox store: nil db")
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1 AND status = 'pending'`, s.table), s.tenantID).Scan(&n)
	return n, err
}
