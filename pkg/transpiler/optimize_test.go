package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synerthink/dotlanth/pkg/arch"
)

func TestConstantFoldMergesTwoConstants(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 2}, {Op: IRConst, Const: 3}, {Op: IRAdd}}
	folded := ConstantFold(code)

	if assertLen(t, folded, 1) {
		assert.Equal(t, IRConst, folded[0].Op)
		assert.Equal(t, float64(5), folded[0].Const)
	}
}

func TestConstantFoldRemovesAddZeroIdentity(t *testing.T) {
	code := []Instr{{Op: IRLocalGet, Local: 0}, {Op: IRConst, Const: 0}, {Op: IRAdd}}
	folded := ConstantFold(code)

	if assertLen(t, folded, 1) {
		assert.Equal(t, IRLocalGet, folded[0].Op)
	}
}

func TestConstantFoldRemovesMulOneIdentity(t *testing.T) {
	code := []Instr{{Op: IRLocalGet, Local: 0}, {Op: IRConst, Const: 1}, {Op: IRMul}}
	folded := ConstantFold(code)

	if assertLen(t, folded, 1) {
		assert.Equal(t, IRLocalGet, folded[0].Op)
	}
}

func TestConstantFoldCollapsesMulZeroToZero(t *testing.T) {
	code := []Instr{{Op: IRLocalGet, Local: 0}, {Op: IRConst, Const: 0}, {Op: IRMul}}
	folded := ConstantFold(code)

	if assertLen(t, folded, 2) {
		assert.Equal(t, IRConst, folded[1].Op)
		assert.Equal(t, float64(0), folded[1].Const)
	}
}

func TestConstantFoldDoesNotFoldDivisionByZero(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 5}, {Op: IRConst, Const: 0}, {Op: IRDiv}}
	folded := ConstantFold(code)

	assertLen(t, folded, 3)
}

func TestConstantFoldRewritesSetThenGet(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 4}, {Op: IRLocalSet, Local: 0}, {Op: IRLocalGet, Local: 0}}
	folded := ConstantFold(code)

	if assertLen(t, folded, 4) {
		assert.Equal(t, IRConst, folded[0].Op)
		assert.Equal(t, IRLocalGet, folded[1].Op)
		assert.Equal(t, IRLocalSet, folded[2].Op)
		assert.Equal(t, IRLocalGet, folded[3].Op)
	}
}

func TestPeepholeRemovesDeadConstDrop(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 1}, {Op: IRDrop}, {Op: IRConst, Const: 2}}
	reduced := Peephole(code)

	assertLen(t, reduced, 1)
}

func TestVectorizeNoOpBelowArch256(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 2}, {Op: IRConst, Const: 3}, {Op: IRAdd}}
	out := Vectorize(code, arch.Arch128)

	assertLen(t, out, 3)
}

func TestVectorizeFoldsAtArch256(t *testing.T) {
	code := []Instr{{Op: IRConst, Const: 2}, {Op: IRConst, Const: 3}, {Op: IRAdd}}
	out := Vectorize(code, arch.Arch256)

	if assertLen(t, out, 1) {
		assert.Equal(t, float64(5), out[0].Const)
	}
}

func assertLen(t *testing.T, code []Instr, n int) bool {
	t.Helper()
	return assert.Len(t, code, n)
}
