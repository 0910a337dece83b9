package siteconfig

import "github.com/shopspring/decimal"

const (
	MinRegisters = 1
	MaxRegisters = 10
	MinTerminals = 1
	MaxTerminals = 20
)

// Raw is a configuration as received from a provider. Arrays may be shorter or
// longer than the declared counts; Normalize repairs them.
type Raw struct {
	Registers      RawRegisters `json:"registers"`
	POSTerminals   RawTerminals `json:"posTerminals"`
	Reconciliation Settings     `json:"reconciliation"`
	Tenant         Tenant       `json:"tenant"`
}

// RawRegisters is the unnormalized register section. A nil Count means absent.
type RawRegisters struct {
	Count         *int            `json:"count"`
	Names         []string        `json:"names,omitempty"`
	Enabled       []bool          `json:"enabled,omitempty"`
	ReserveAmount decimal.Decimal `json:"reserveAmount"`
}

// RawTerminals is the unnormalized POS terminal section.
type RawTerminals struct {
	Count   *int     `json:"count"`
	Names   []string `json:"names,omitempty"`
	Enabled []bool   `json:"enabled,omitempty"`
}

// Settings holds reconciliation policy values.
type Settings struct {
	DailyDeadline          string          `json:"dailyDeadline"`
	VarianceTolerance      decimal.Decimal `json:"varianceTolerance"`
	RequireManagerApproval bool            `json:"requireManagerApproval"`
}

// Tenant identifies the restaurant the configuration belongs to.
type Tenant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Config is a normalized configuration: every Names/Enabled slice has exactly
// Count entries.
type Config struct {
	Registers      Registers `json:"registers"`
	POSTerminals   Terminals `json:"posTerminals"`
	Reconciliation Settings  `json:"reconciliation"`
	Tenant         Tenant    `json:"tenant"`
}

// Registers is the normalized register section.
type Registers struct {
	Count         int             `json:"count"`
	Names         []string        `json:"names"`
	Enabled       []bool          `json:"enabled"`
	ReserveAmount decimal.Decimal `json:"reserveAmount"`
}

// Terminals is the normalized POS terminal section.
type Terminals struct {
	Count   int      `json:"count"`
	Names   []string `json:"names"`
	Enabled []bool   `json:"enabled"`
}

// Raw converts a normalized config back to provider form.
func (c Config) Raw() Raw {
	registers := c.Registers.Count
	terminals := c.POSTerminals.Count
	return Raw{
		Registers: RawRegisters{
			Count:         &registers,
			Names:         append([]string(nil), c.Registers.Names...),
			Enabled:       append([]bool(nil), c.Registers.Enabled...),
			ReserveAmount: c.Registers.ReserveAmount,
		},
		POSTerminals: RawTerminals{
			Count:   &terminals,
			Names:   append([]string(nil), c.POSTerminals.Names...),
			Enabled: append([]bool(nil), c.POSTerminals.Enabled...),
		},
		Reconciliation: c.Reconciliation,
		Tenant:         c.Tenant,
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Registers.Names = append([]string(nil), c.Registers.Names...)
	c.Registers.Enabled = append([]bool(nil), c.Registers.Enabled...)
	c.POSTerminals.Names = append([]string(nil), c.POSTerminals.Names...)
	c.POSTerminals.Enabled = append([]bool(nil), c.POSTerminals.Enabled...)
	return c
}

// Clone returns a deep copy.
func (r Raw) Clone() Raw {
	if r.Registers.Count != nil {
		r.Registers.Count = IntPtr(*r.Registers.Count)
	}
	if r.POSTerminals.Count != nil {
		r.POSTerminals.Count = IntPtr(*r.POSTerminals.Count)
	}
	r.Registers.Names = cloneSlice(r.Registers.Names)
	r.Registers.Enabled = cloneSlice(r.Registers.Enabled)
	r.POSTerminals.Names = cloneSlice(r.POSTerminals.Names)
	r.POSTerminals.Enabled = cloneSlice(r.POSTerminals.Enabled)
	return r
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append([]T(nil), in...)
}

// DefaultRaw is the configuration used when no provider has one stored.
func DefaultRaw() Raw {
	registers := 2
	terminals := 4
	return Raw{
		Registers: RawRegisters{
			Count:         &registers,
			Names:         []string{"Main Register", "Secondary Register"},
			ReserveAmount: decimal.NewFromInt(400),
		},
		POSTerminals: RawTerminals{
			Count:   &terminals,
			Names:   []string{"Terminal 1", "Terminal 2", "Terminal 3", "Terminal 4"},
			Enabled: []bool{true, true, true, false},
		},
		Reconciliation: Settings{
			DailyDeadline:          "23:59",
			VarianceTolerance:      decimal.NewFromInt(5),
			RequireManagerApproval: true,
		},
		Tenant: Tenant{
			ID:       "tenant-001",
			Name:     "SmartBite Restaurant",
			Timezone: "Australia/Sydney",
		},
	}
}

// IntPtr is a helper for building Raw counts.
func IntPtr(v int) *int { return &v }
