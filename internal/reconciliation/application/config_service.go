package application

import (
	"context"
	"errors"

	reconciliation "cashup/internal/reconciliation/domain"
	siteconfig "cashup/internal/siteconfig/domain"
)

// ErrConfigReadOnly is returned when the provider cannot store edits.
var ErrConfigReadOnly = errors.New("site config: provider is read only")

// SiteConfigService serves the normalized site config and previews drafts
// against it.
type SiteConfigService struct {
	provider ConfigProvider
}

// NewSiteConfigService constructs the service.
func NewSiteConfigService(provider ConfigProvider) (*SiteConfigService, error) {
	if provider == nil {
		return nil, errors.New("site config service: nil provider")
	}
	return &SiteConfigService{provider: provider}, nil
}

// Current returns the normalized config.
func (s *SiteConfigService) Current(ctx context.Context) (siteconfig.Config, error) {
	return loadConfig(ctx, s.provider)
}

// Update normalizes raw and stores the result.
func (s *SiteConfigService) Update(ctx context.Context, raw siteconfig.Raw) (siteconfig.Config, error) {
	store, ok := s.provider.(ConfigStore)
	if !ok {
		return siteconfig.Config{}, ErrConfigReadOnly
	}
	cfg, err := siteconfig.Normalize(raw)
	if err != nil {
		return siteconfig.Config{}, err
	}
	if err := store.SaveConfig(ctx, cfg.Raw()); err != nil {
		return siteconfig.Config{}, err
	}
	return cfg, nil
}

// Edit applies settings-screen edits to the current config and stores the
// result.
func (s *SiteConfigService) Edit(ctx context.Context, edits []siteconfig.Edit) (siteconfig.Config, error) {
	store, ok := s.provider.(ConfigStore)
	if !ok {
		return siteconfig.Config{}, ErrConfigReadOnly
	}
	current, err := loadConfig(ctx, s.provider)
	if err != nil {
		return siteconfig.Config{}, err
	}
	edited, err := siteconfig.ApplyEdits(current, edits...)
	if err != nil {
		return siteconfig.Config{}, err
	}
	cfg, err := siteconfig.Normalize(edited.Raw())
	if err != nil {
		return siteconfig.Config{}, err
	}
	if err := store.SaveConfig(ctx, cfg.Raw()); err != nil {
		return siteconfig.Config{}, err
	}
	return cfg, nil
}

// Preview computes a record from draft without storing anything.
func (s *SiteConfigService) Preview(ctx context.Context, draft Draft, employee string, clock Clock) (reconciliation.Record, error) {
	cfg, err := s.Current(ctx)
	if err != nil {
		return reconciliation.Record{}, err
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return BuildRecord(cfg, draft, employee, clock.Now()), nil
}
