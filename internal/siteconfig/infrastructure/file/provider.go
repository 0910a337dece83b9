package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	siteconfig "cashup/internal/siteconfig/domain"
)

type registersDoc struct {
	Count         *int     `yaml:"count"`
	Names         []string `yaml:"names"`
	Enabled       []bool   `yaml:"enabled"`
	ReserveAmount *float64 `yaml:"reserve_amount"`
}

type terminalsDoc struct {
	Count   *int     `yaml:"count"`
	Names   []string `yaml:"names"`
	Enabled []bool   `yaml:"enabled"`
}

type reconciliationDoc struct {
	DailyDeadline          string   `yaml:"daily_deadline"`
	VarianceTolerance      *float64 `yaml:"variance_tolerance"`
	RequireManagerApproval *bool    `yaml:"require_manager_approval"`
}

type tenantDoc struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

type document struct {
	Registers      *registersDoc      `yaml:"registers"`
	POSTerminals   *terminalsDoc      `yaml:"pos_terminals"`
	Reconciliation *reconciliationDoc `yaml:"reconciliation"`
	Tenant         *tenantDoc         `yaml:"tenant"`
}

// Provider reads the site config from a YAML file on every call, so edits are
// picked up without a restart.
type Provider struct {
	path   string
	logger logrus.FieldLogger
}

// NewProvider constructs a provider for path.
func NewProvider(path string, logger logrus.FieldLogger) (*Provider, error) {
	if path == "" {
		return nil, errors.New("siteconfig file: empty path")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Provider{path: path, logger: logger}, nil
}

// GetConfig loads the file and overlays it on the default config. A missing
// file yields the defaults.
func (p *Provider) GetConfig(ctx context.Context) (siteconfig.Raw, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.WithField("path", p.path).Warn("site config file missing, using defaults")
		return siteconfig.DefaultRaw(), nil
	}
	if err != nil {
		return siteconfig.Raw{}, fmt.Errorf("siteconfig file: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and overlays the fields it sets on the default config.
func Parse(data []byte) (siteconfig.Raw, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return siteconfig.Raw{}, fmt.Errorf("%w: %v", siteconfig.ErrInvalidConfig, err)
	}
	return overlay(siteconfig.DefaultRaw(), doc), nil
}

func overlay(base siteconfig.Raw, doc document) siteconfig.Raw {
	if r := doc.Registers; r != nil {
		if r.Count != nil {
			base.Registers.Count = siteconfig.IntPtr(*r.Count)
			base.Registers.Names = nil
			base.Registers.Enabled = nil
		}
		if r.Names != nil {
			base.Registers.Names = r.Names
		}
		if r.Enabled != nil {
			base.Registers.Enabled = r.Enabled
		}
		if r.ReserveAmount != nil {
			base.Registers.ReserveAmount = money(*r.ReserveAmount)
		}
	}
	if t := doc.POSTerminals; t != nil {
		if t.Count != nil {
			base.POSTerminals.Count = siteconfig.IntPtr(*t.Count)
			base.POSTerminals.Names = nil
			base.POSTerminals.Enabled = nil
		}
		if t.Names != nil {
			base.POSTerminals.Names = t.Names
		}
		if t.Enabled != nil {
			base.POSTerminals.Enabled = t.Enabled
		}
	}
	if s := doc.Reconciliation; s != nil {
		if s.DailyDeadline != "" {
			base.Reconciliation.DailyDeadline = s.DailyDeadline
		}
		if s.VarianceTolerance != nil {
			base.Reconciliation.VarianceTolerance = money(*s.VarianceTolerance)
		}
		if s.RequireManagerApproval != nil {
			base.Reconciliation.RequireManagerApproval = *s.RequireManagerApproval
		}
	}
	if t := doc.Tenant; t != nil {
		if t.ID != "" {
			base.Tenant.ID = t.ID
		}
		if t.Name != "" {
			base.Tenant.Name = t.Name
		}
		if t.Timezone != "" {
			base.Tenant.Timezone = t.Timezone
		}
	}
	return base
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
