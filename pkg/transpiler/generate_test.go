package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/executor"
	"github.com/synerthink/dotlanth/pkg/opcode"
)

func TestGenerateLowersConstAndArithmetic(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{
		{Op: IRConst, Const: 2},
		{Op: IRConst, Const: 3},
		{Op: IRAdd},
	}}}

	img, err := Generate(funcs, arch.Arch32)
	require.NoError(t, err)
	require.Len(t, img.Instructions, 3)
	assert.Equal(t, opcode.Push, img.Instructions[0].Kind)
	assert.Equal(t, opcode.Push, img.Instructions[1].Kind)
	assert.Equal(t, opcode.Add, img.Instructions[2].Kind)
	assert.Equal(t, uint32(3), img.Header.InstructionCount)
}

func TestGenerateExecutesToExpectedResult(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{
		{Op: IRConst, Const: 4},
		{Op: IRConst, Const: 5},
		{Op: IRMul},
	}}}

	img, err := Generate(funcs, arch.Arch32)
	require.NoError(t, err)

	exec := executor.New(arch.Arch32)
	require.NoError(t, exec.Run(img.Instructions))
	top, err := exec.Stack.Peek()
	require.NoError(t, err)
	assert.Equal(t, float64(20), top.Float64())
}

func TestGenerateLowersWideIntToBigIntFamily(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{
		{Op: IRConst, Const: 40, WideInt: true},
		{Op: IRConst, Const: 2, WideInt: true},
		{Op: IRAdd, WideInt: true},
	}}}

	img, err := Generate(funcs, arch.Arch128)
	require.NoError(t, err)

	exec := executor.New(arch.Arch128)
	require.NoError(t, exec.Run(img.Instructions))
	top, err := exec.Stack.Peek()
	require.NoError(t, err)
	assert.True(t, top.IsBigInt())
	assert.Equal(t, float64(42), top.Float64())
}

func TestGenerateRejectsWideIntBelowArch128(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{{Op: IRConst, Const: 1, WideInt: true}}}}

	_, err := Generate(funcs, arch.Arch64)
	var mismatch *InstructionArchitectureMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestGenerateLowersLocalsThroughLoadStore(t *testing.T) {
	funcs := []IRFunction{{NumLocals: 1, Code: []Instr{
		{Op: IRConst, Const: 9},
		{Op: IRLocalSet, Local: 0},
		{Op: IRLocalGet, Local: 0},
		{Op: IRConst, Const: 1},
		{Op: IRAdd},
	}}}

	img, err := Generate(funcs, arch.Arch32)
	require.NoError(t, err)

	exec := executor.New(arch.Arch32)
	require.NoError(t, exec.AllocateLocals(1))
	require.NoError(t, exec.Run(img.Instructions))
	top, err := exec.Stack.Peek()
	require.NoError(t, err)
	assert.Equal(t, float64(10), top.Float64())
}

func TestGenerateDropAndReturnEmitNothing(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{
		{Op: IRConst, Const: 1},
		{Op: IRDrop},
		{Op: IRReturn},
	}}}

	img, err := Generate(funcs, arch.Arch32)
	require.NoError(t, err)
	assert.Len(t, img.Instructions, 1)
}

func TestImageRoundTripsThroughBytes(t *testing.T) {
	funcs := []IRFunction{{Code: []Instr{
		{Op: IRConst, Const: 2},
		{Op: IRConst, Const: 3},
		{Op: IRAdd},
	}}}

	img, err := Generate(funcs, arch.Arch32)
	require.NoError(t, err)

	decoded, err := executor.ParseImage(img.ToBytes())
	require.NoError(t, err)
	assert.Equal(t, img.Header, decoded.Header)
	require.Len(t, decoded.Instructions, 3)
	assert.Equal(t, img.Instructions[2].Kind, decoded.Instructions[2].Kind)
}
