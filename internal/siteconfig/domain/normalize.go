package siteconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Resize returns a copy of seq with exactly n entries. Existing entries are
// kept by index, surplus entries are dropped and missing ones come from def.
func Resize[T any](seq []T, n int, def func(i int) T) []T {
	if n < 0 {
		n = 0
	}
	out := make([]T, n)
	copied := copy(out, seq)
	for i := copied; i < n; i++ {
		out[i] = def(i)
	}
	return out
}

// RegisterLabel is the default display name for register i (zero based).
func RegisterLabel(i int) string { return "Register " + strconv.Itoa(i+1) }

// TerminalLabel is the default display name for terminal i (zero based).
func TerminalLabel(i int) string { return "Terminal " + strconv.Itoa(i+1) }

func enabledByDefault(int) bool { return true }

// Normalize repairs a raw configuration so that names and enabled flags match
// the declared counts. Applying it to an already normalized config is a no-op.
func Normalize(raw Raw) (Config, error) {
	if raw.Registers.Count == nil {
		return Config{}, fmt.Errorf("%w: register count is required", ErrInvalidConfig)
	}
	if *raw.Registers.Count < MinRegisters {
		return Config{}, fmt.Errorf("%w: register count must be between %d and %d", ErrInvalidConfig, MinRegisters, MaxRegisters)
	}
	if raw.POSTerminals.Count == nil {
		return Config{}, fmt.Errorf("%w: pos terminal count is required", ErrInvalidConfig)
	}
	if *raw.POSTerminals.Count < MinTerminals {
		return Config{}, fmt.Errorf("%w: pos terminal count must be between %d and %d", ErrInvalidConfig, MinTerminals, MaxTerminals)
	}
	if raw.Registers.ReserveAmount.IsNegative() {
		return Config{}, fmt.Errorf("%w: reserve amount must not be negative", ErrInvalidConfig)
	}
	if raw.Reconciliation.VarianceTolerance.IsNegative() {
		return Config{}, fmt.Errorf("%w: variance tolerance must not be negative", ErrInvalidConfig)
	}

	registers := clamp(*raw.Registers.Count, MinRegisters, MaxRegisters)
	terminals := clamp(*raw.POSTerminals.Count, MinTerminals, MaxTerminals)

	return Config{
		Registers: Registers{
			Count:         registers,
			Names:         normalizeNames(raw.Registers.Names, registers, RegisterLabel),
			Enabled:       Resize(raw.Registers.Enabled, registers, enabledByDefault),
			ReserveAmount: raw.Registers.ReserveAmount,
		},
		POSTerminals: Terminals{
			Count:   terminals,
			Names:   normalizeNames(raw.POSTerminals.Names, terminals, TerminalLabel),
			Enabled: Resize(raw.POSTerminals.Enabled, terminals, enabledByDefault),
		},
		Reconciliation: raw.Reconciliation,
		Tenant:         raw.Tenant,
	}, nil
}

func normalizeNames(names []string, n int, label func(int) string) []string {
	out := Resize(names, n, label)
	for i := range out {
		if strings.TrimSpace(out[i]) == "" {
			out[i] = label(i)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
