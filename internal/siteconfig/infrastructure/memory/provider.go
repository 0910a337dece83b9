package memory

import (
	"context"
	"sync"

	siteconfig "cashup/internal/siteconfig/domain"
)

// Provider keeps a site config in memory.
type Provider struct {
	mu  sync.RWMutex
	raw siteconfig.Raw
	err error
}

// NewProvider constructs a provider seeded with raw.
func NewProvider(raw siteconfig.Raw) *Provider {
	return &Provider{raw: raw.Clone()}
}

// NewDefaultProvider constructs a provider seeded with the default config.
func NewDefaultProvider() *Provider {
	return NewProvider(siteconfig.DefaultRaw())
}

// GetConfig returns a copy of the stored config.
func (p *Provider) GetConfig(ctx context.Context) (siteconfig.Raw, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return siteconfig.Raw{}, p.err
	}
	return p.raw.Clone(), nil
}

// SaveConfig replaces the stored config.
func (p *Provider) SaveConfig(ctx context.Context, raw siteconfig.Raw) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raw = raw.Clone()
	return nil
}

// FailWith makes subsequent GetConfig calls return err. A nil err clears it.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}
