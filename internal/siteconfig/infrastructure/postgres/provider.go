package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	siteconfig "cashup/internal/siteconfig/domain"
)

const defaultSiteConfigTable = "site_config"

// Provider stores one site config document per tenant.
type Provider struct {
	db       *sql.DB
	table    string
	tenantID string
}

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithTable overrides the default table name.
func WithTable(table string) ProviderOption {
	return func(p *Provider) {
		if table != "" {
			p.table = table
		}
	}
}

// NewProvider constructs a provider scoped to tenantID.
func NewProvider(db *sql.DB, tenantID string, opts ...ProviderOption) (*Provider, error) {
	if db == nil {
		return nil, errors.New("siteconfig repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("siteconfig repo: tenant id required")
	}
	p := &Provider{db: db, table: defaultSiteConfigTable, tenantID: tenantID}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GetConfig loads the tenant's config. It returns ErrConfigNotFound when no
// row exists.
func (p *Provider) GetConfig(ctx context.Context) (siteconfig.Raw, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT config
FROM %s
WHERE tenant_id = $1`, p.table), p.tenantID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return siteconfig.Raw{}, siteconfig.ErrConfigNotFound
	}
	if err != nil {
		return siteconfig.Raw{}, err
	}
	var raw siteconfig.Raw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return siteconfig.Raw{}, fmt.Errorf("%w: %v", siteconfig.ErrInvalidConfig, err)
	}
	return raw, nil
}

// SaveConfig upserts the tenant's config.
func (p *Provider) SaveConfig(ctx context.Context, raw siteconfig.Raw) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (tenant_id, config, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id) DO UPDATE
SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`, p.table),
		p.tenantID, payload, time.Now().UTC())
	return err
}

// EnsureDefault seeds the default config when the tenant has none.
func (p *Provider) EnsureDefault(ctx context.Context) error {
	_, err := p.GetConfig(ctx)
	if errors.Is(err, siteconfig.ErrConfigNotFound) {
		raw := siteconfig.DefaultRaw()
		raw.Tenant.ID = p.tenantID
		return p.SaveConfig(ctx, raw)
	}
	return err
}
