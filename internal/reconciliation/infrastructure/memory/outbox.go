package memory

import (
	"context"
	"sync"

	reconciliation "cashup/internal/reconciliation/domain"
)

type outboxEntry struct {
	record    reconciliation.Record
	attempts  int
	lastError string
}

// Outbox is an in-memory outbox. Entries are removed when marked sent.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*outboxEntry
	order   []string
}

// NewOutbox constructs an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*outboxEntry)}
}

// Enqueue adds rec or replaces the pending entry with the same id.
func (o *Outbox) Enqueue(ctx context.Context, rec reconciliation.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[rec.ID]; ok {
		e.record = rec.Clone()
		return nil
	}
	o.entries[rec.ID] = &outboxEntry{record: rec.Clone()}
	o.order = append(o.order, rec.ID)
	return nil
}

// ListPending returns up to limit entries, oldest first.
func (o *Outbox) ListPending(ctx context.Context, limit int) ([]reconciliation.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []reconciliation.Record
	for _, id := range o.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, o.entries[id].record.Clone())
	}
	return out, nil
}

// MarkSent removes the entry.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.entries[id]; !ok {
		return nil
	}
	delete(o.entries, id)
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// MarkFailed records a failed attempt and keeps the entry queued.
func (o *Outbox) MarkFailed(ctx context.Context, id string, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		e.attempts++
		if cause != nil {
			e.lastError = cause.Error()
		}
	}
	return nil
}

// Attempts returns the failed attempt count for id.
func (o *Outbox) Attempts(id string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		return e.attempts
	}
	return 0
}

// Len returns the number of pending entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}
