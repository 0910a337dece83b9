package memory

import (
	"context"
	"sync"

	"cashup/internal/reconciliation/application"
)

// Autosave keeps drafts in memory.
type Autosave struct {
	mu     sync.Mutex
	drafts map[string]application.Draft
}

// NewAutosave constructs an empty store.
func NewAutosave() *Autosave {
	return &Autosave{drafts: make(map[string]application.Draft)}
}

// Get returns the draft stored under key, or nil.
func (a *Autosave) Get(ctx context.Context, key string) (*application.Draft, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.drafts[key]
	if !ok {
		return nil, nil
	}
	out := d.Clone()
	return &out, nil
}

// Set stores draft under key.
func (a *Autosave) Set(ctx context.Context, key string, draft application.Draft) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.drafts[key] = draft.Clone()
	return nil
}

// Clear removes key.
func (a *Autosave) Clear(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.drafts, key)
	return nil
}
