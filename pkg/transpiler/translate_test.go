package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/arch"
)

func TestTranslateLowersI32Arithmetic(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i32Const(2).i32Const(3).op(wasmOpI32Add).op(wasmOpEnd).body}}}

	funcs, err := Translate(mod, arch.Arch32)
	require.NoError(t, err)
	require.Len(t, funcs, 1)

	code := funcs[0].Code
	require.Len(t, code, 3)
	assert.Equal(t, IRConst, code[0].Op)
	assert.Equal(t, float64(2), code[0].Const)
	assert.Equal(t, IRConst, code[1].Op)
	assert.Equal(t, float64(3), code[1].Const)
	assert.Equal(t, IRAdd, code[2].Op)
	assert.False(t, code[2].WideInt)
}

func TestTranslateLowersLocals(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).localGet(0).localSet(1).op(wasmOpEnd).body}}}

	funcs, err := Translate(mod, arch.Arch32)
	require.NoError(t, err)

	code := funcs[0].Code
	require.Len(t, code, 2)
	assert.Equal(t, IRLocalGet, code[0].Op)
	assert.Equal(t, uint32(0), code[0].Local)
	assert.Equal(t, IRLocalSet, code[1].Op)
	assert.Equal(t, uint32(1), code[1].Local)
}

func TestTranslateLowersLocalTeeToSetThenGet(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i32Const(9).localTee(0).op(wasmOpEnd).body}}}

	funcs, err := Translate(mod, arch.Arch32)
	require.NoError(t, err)

	code := funcs[0].Code
	require.Len(t, code, 3)
	assert.Equal(t, IRConst, code[0].Op)
	assert.Equal(t, IRLocalSet, code[1].Op)
	assert.Equal(t, IRLocalGet, code[2].Op)
}

func TestTranslateRejectsI64BelowArch128(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i64Const(7).op(wasmOpEnd).body}}}

	_, err := Translate(mod, arch.Arch64)
	var mismatch *InstructionArchitectureMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, arch.Arch128.String(), mismatch.Required)
	assert.Equal(t, arch.Arch64.String(), mismatch.Target)
}

func TestTranslateAllowsI64AtArch128(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i64Const(7).i64Const(8).op(wasmOpI64Add).op(wasmOpEnd).body}}}

	funcs, err := Translate(mod, arch.Arch128)
	require.NoError(t, err)
	code := funcs[0].Code
	require.Len(t, code, 3)
	assert.True(t, code[0].WideInt)
	assert.True(t, code[2].WideInt)
	assert.Equal(t, IRAdd, code[2].Op)
}

func TestTranslateRejectsUnsupportedOpcode(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: []byte{0x01, wasmOpEnd}}}}

	_, err := Translate(mod, arch.Arch32)
	var unsupported *UnsupportedInstructionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "0x01", unsupported.Instruction)
}

func TestTranslateRejectsMissingEnd(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i32Const(1).body}}}

	_, err := Translate(mod, arch.Arch32)
	var parseErr *WasmParsingError
	require.ErrorAs(t, err, &parseErr)
}

func TestTranslateDropAndReturn(t *testing.T) {
	mod := &Module{Functions: []Function{{Body: (&wasmBuilder{}).i32Const(1).op(wasmOpDrop).op(wasmOpReturn).op(wasmOpEnd).body}}}

	funcs, err := Translate(mod, arch.Arch32)
	require.NoError(t, err)
	code := funcs[0].Code
	require.Len(t, code, 3)
	assert.Equal(t, IRDrop, code[1].Op)
	assert.Equal(t, IRReturn, code[2].Op)
}
