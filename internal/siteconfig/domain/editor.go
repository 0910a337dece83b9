package siteconfig

import "fmt"

// EditOp names one settings-screen change.
type EditOp string

const (
	OpAddRegister    EditOp = "add_register"
	OpRemoveRegister EditOp = "remove_register"
	OpRenameRegister EditOp = "rename_register"
	OpAddTerminal    EditOp = "add_terminal"
	OpRemoveTerminal EditOp = "remove_terminal"
	OpToggleTerminal EditOp = "toggle_terminal"
)

// Edit is one change to a config. Index and Name are used by the rename and
// toggle operations.
type Edit struct {
	Op    EditOp `json:"op"`
	Index int    `json:"index,omitempty"`
	Name  string `json:"name,omitempty"`
}

// ApplyEdits applies edits in order. An unknown operation leaves cfg
// unchanged and returns ErrInvalidConfig.
func ApplyEdits(cfg Config, edits ...Edit) (Config, error) {
	out := cfg.Clone()
	for _, e := range edits {
		switch e.Op {
		case OpAddRegister:
			out = AddRegister(out)
		case OpRemoveRegister:
			out = RemoveRegister(out)
		case OpRenameRegister:
			out = RenameRegister(out, e.Index, e.Name)
		case OpAddTerminal:
			out = AddTerminal(out)
		case OpRemoveTerminal:
			out = RemoveTerminal(out)
		case OpToggleTerminal:
			out = ToggleTerminal(out, e.Index)
		default:
			return cfg, fmt.Errorf("%w: unknown edit %q", ErrInvalidConfig, string(e.Op))
		}
	}
	return out, nil
}

// AddRegister grows the register count by one, up to MaxRegisters.
func AddRegister(cfg Config) Config {
	return withRegisterCount(cfg, cfg.Registers.Count+1)
}

// RemoveRegister shrinks the register count by one, down to MinRegisters.
func RemoveRegister(cfg Config) Config {
	return withRegisterCount(cfg, cfg.Registers.Count-1)
}

// AddTerminal grows the terminal count by one, up to MaxTerminals.
func AddTerminal(cfg Config) Config {
	return withTerminalCount(cfg, cfg.POSTerminals.Count+1)
}

// RemoveTerminal shrinks the terminal count by one, down to MinTerminals.
func RemoveTerminal(cfg Config) Config {
	return withTerminalCount(cfg, cfg.POSTerminals.Count-1)
}

// ToggleTerminal flips the enabled flag of terminal i. Out of range indexes
// leave the config unchanged.
func ToggleTerminal(cfg Config, i int) Config {
	out := cfg.Clone()
	if i < 0 || i >= len(out.POSTerminals.Enabled) {
		return out
	}
	out.POSTerminals.Enabled[i] = !out.POSTerminals.Enabled[i]
	return out
}

// RenameRegister sets the display name of register i. Blank names fall back to
// the default label.
func RenameRegister(cfg Config, i int, name string) Config {
	out := cfg.Clone()
	if i < 0 || i >= len(out.Registers.Names) {
		return out
	}
	out.Registers.Names[i] = name
	out.Registers.Names = normalizeNames(out.Registers.Names, out.Registers.Count, RegisterLabel)
	return out
}

func withRegisterCount(cfg Config, n int) Config {
	out := cfg.Clone()
	n = clamp(n, MinRegisters, MaxRegisters)
	out.Registers.Count = n
	out.Registers.Names = normalizeNames(out.Registers.Names, n, RegisterLabel)
	out.Registers.Enabled = Resize(out.Registers.Enabled, n, enabledByDefault)
	return out
}

func withTerminalCount(cfg Config, n int) Config {
	out := cfg.Clone()
	n = clamp(n, MinTerminals, MaxTerminals)
	out.POSTerminals.Count = n
	out.POSTerminals.Names = normalizeNames(out.POSTerminals.Names, n, TerminalLabel)
	out.POSTerminals.Enabled = Resize(out.POSTerminals.Enabled, n, enabledByDefault)
	return out
}
