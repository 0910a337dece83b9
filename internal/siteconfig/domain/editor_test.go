package siteconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRegister_StopsAtMaximum(t *testing.T) {
	cfg, err := Normalize(Raw{
		Registers:    RawRegisters{Count: IntPtr(1)},
		POSTerminals: RawTerminals{Count: IntPtr(1)},
	})
	require.NoError(t, err)

	for i := 0; i < 11; i++ {
		cfg = AddRegister(cfg)
	}

	assert.Equal(t, MaxRegisters, cfg.Registers.Count)
	assert.Len(t, cfg.Registers.Names, MaxRegisters)
	assert.Len(t, cfg.Registers.Enabled, MaxRegisters)
	assert.Equal(t, "Register 10", cfg.Registers.Names[9])
}

func TestRemoveRegister_StopsAtMinimum(t *testing.T) {
	cfg, err := Normalize(DefaultRaw())
	require.NoError(t, err)

	cfg = RemoveRegister(RemoveRegister(RemoveRegister(cfg)))

	assert.Equal(t, MinRegisters, cfg.Registers.Count)
	assert.Equal(t, []string{"Main Register"}, cfg.Registers.Names)
	assert.Len(t, cfg.Registers.Enabled, 1)
}

func TestTerminalEditing(t *testing.T) {
	cfg, err := Normalize(DefaultRaw())
	require.NoError(t, err)

	grown := AddTerminal(cfg)
	assert.Equal(t, 5, grown.POSTerminals.Count)
	assert.Equal(t, "Terminal 5", grown.POSTerminals.Names[4])
	assert.True(t, grown.POSTerminals.Enabled[4])
	assert.Equal(t, 4, cfg.POSTerminals.Count, "editing must not mutate the input")

	toggled := ToggleTerminal(cfg, 3)
	assert.True(t, toggled.POSTerminals.Enabled[3])
	assert.False(t, cfg.POSTerminals.Enabled[3])

	unchanged := ToggleTerminal(cfg, 42)
	assert.Equal(t, cfg.POSTerminals.Enabled, unchanged.POSTerminals.Enabled)

	for i := 0; i < 30; i++ {
		cfg = RemoveTerminal(cfg)
	}
	assert.Equal(t, MinTerminals, cfg.POSTerminals.Count)
	assert.Len(t, cfg.POSTerminals.Names, 1)
}

func TestRenameRegister(t *testing.T) {
	cfg, err := Normalize(DefaultRaw())
	require.NoError(t, err)

	renamed := RenameRegister(cfg, 1, "Bar")
	assert.Equal(t, "Bar", renamed.Registers.Names[1])

	blank := RenameRegister(renamed, 1, "")
	assert.Equal(t, "Register 2", blank.Registers.Names[1])
}

func TestApplyEdits_InOrder(t *testing.T) {
	cfg, err := Normalize(DefaultRaw())
	require.NoError(t, err)
	registers := cfg.Registers.Count
	terminals := cfg.POSTerminals.Count

	edited, err := ApplyEdits(cfg,
		Edit{Op: OpAddRegister},
		Edit{Op: OpRenameRegister, Index: registers, Name: "Bar"},
		Edit{Op: OpAddTerminal},
		Edit{Op: OpToggleTerminal, Index: terminals},
	)
	require.NoError(t, err)

	assert.Equal(t, registers+1, edited.Registers.Count)
	assert.Equal(t, "Bar", edited.Registers.Names[registers])
	assert.Equal(t, terminals+1, edited.POSTerminals.Count)
	assert.False(t, edited.POSTerminals.Enabled[terminals])
	assert.Equal(t, registers, cfg.Registers.Count, "input is not modified")
}

func TestApplyEdits_UnknownOp(t *testing.T) {
	cfg, err := Normalize(DefaultRaw())
	require.NoError(t, err)

	out, err := ApplyEdits(cfg, Edit{Op: OpAddRegister}, Edit{Op: "explode"})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, cfg.Registers.Count, out.Registers.Count)
}
