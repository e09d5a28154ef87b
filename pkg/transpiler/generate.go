package transpiler

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/executor"
	"github.com/synerthink/dotlanth/pkg/opcode"
)

// bytecodeVersion is the Generate phase's emitted image format version.
const bytecodeVersion = 1

// Generate lowers the optimized IR functions into a single bytecode
// image for tier, concatenating every function's code in order — a dot
// is one linear program, not a set of independently callable functions,
// so Generate flattens the module rather than emitting a call table.
//
// IRConst/IRLocalGet/IRLocalSet are pseudo-ops resolved here into
// Push/Load/Store instructions. A WideInt value is carried on the
// operand stack as a BigInt, via BigIntFromInt immediately after the
// Push/Load that seeds it from its 8-byte float64 cell — this reuses
// the existing BigInt opcode family instead of adding a second,
// float64-incompatible immediate-push opcode. Store pops whatever is
// on top of the stack and narrows it back to float64 itself (Value's
// Float64 accessor converts a BigInt payload), so no corresponding
// narrowing step is needed before a local.set.
func Generate(funcs []IRFunction, tier arch.Tier) (*executor.Image, error) {
	var code []executor.Instruction

	for _, fn := range funcs {
		for _, instr := range fn.Code {
			lowered, err := lowerInstr(instr, tier)
			if err != nil {
				return nil, err
			}
			code = append(code, lowered...)
		}
	}

	img := executor.NewImage(tier, bytecodeVersion, code)
	return &img, nil
}

func lowerInstr(instr Instr, tier arch.Tier) ([]executor.Instruction, error) {
	switch instr.Op {
	case IRConst:
		out := []executor.Instruction{{Kind: opcode.Push, Value: float64Bytes(instr.Const)}}
		if instr.WideInt {
			if tier < arch.Arch128 {
				return nil, &InstructionArchitectureMismatchError{Required: arch.Arch128.String(), Target: tier.String()}
			}
			out = append(out, executor.Instruction{Kind: opcode.BigIntFromInt})
		}
		return out, nil

	case IRLocalGet:
		out := []executor.Instruction{{Kind: opcode.Load, Key: strconv.FormatUint(uint64(instr.Local), 10)}}
		if instr.WideInt {
			out = append(out, executor.Instruction{Kind: opcode.BigIntFromInt})
		}
		return out, nil

	case IRLocalSet:
		return []executor.Instruction{{Kind: opcode.Store, Key: strconv.FormatUint(uint64(instr.Local), 10)}}, nil

	case IRDrop, IRReturn:
		// No corresponding DotVM opcode exists for either: a program is
		// one flat instruction stream with no call frames to return
		// from, and a value left on the stack at program end is simply
		// never read. Both are no-ops at generation time.
		return nil, nil

	case IRAdd:
		return []executor.Instruction{{Kind: lowerBinOp(opcode.Add, opcode.BigIntAdd, instr.WideInt)}}, nil
	case IRSub:
		return []executor.Instruction{{Kind: lowerBinOp(opcode.Sub, opcode.BigIntSub, instr.WideInt)}}, nil
	case IRMul:
		return []executor.Instruction{{Kind: lowerBinOp(opcode.Mul, opcode.BigIntMul, instr.WideInt)}}, nil
	case IRDiv:
		return []executor.Instruction{{Kind: lowerBinOp(opcode.Div, opcode.BigIntDiv, instr.WideInt)}}, nil

	default:
		return nil, &BytecodeGenerationError{Reason: "unknown IR op " + instr.Op.String()}
	}
}

func lowerBinOp(narrow, wide opcode.Kind, wideInt bool) opcode.Kind {
	if wideInt {
		return wide
	}
	return narrow
}

func float64Bytes(f float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf
}
