package transpiler

import (
	"fmt"

	"github.com/synerthink/dotlanth/pkg/arch"
)

const (
	wasmOpEnd       = 0x0b
	wasmOpReturn    = 0x0f
	wasmOpDrop      = 0x1a
	wasmOpLocalGet  = 0x20
	wasmOpLocalSet  = 0x21
	wasmOpLocalTee  = 0x22
	wasmOpI32Const  = 0x41
	wasmOpI64Const  = 0x42
	wasmOpI32Add    = 0x6a
	wasmOpI32Sub    = 0x6b
	wasmOpI32Mul    = 0x6c
	wasmOpI32DivS   = 0x6d
	wasmOpI64Add    = 0x7c
	wasmOpI64Sub    = 0x7d
	wasmOpI64Mul    = 0x7e
	wasmOpI64DivS   = 0x7f
)

// Translate lowers every function in mod into IR, targeting tier. A
// function using i64 arithmetic when tier cannot represent BigInt
// opcodes (< Arch128) fails InstructionArchitectureMismatchError.
func Translate(mod *Module, tier arch.Tier) ([]IRFunction, error) {
	out := make([]IRFunction, 0, len(mod.Functions))
	for _, fn := range mod.Functions {
		code, err := translateFunction(fn, tier)
		if err != nil {
			return nil, err
		}
		out = append(out, IRFunction{NumLocals: fn.NumLocals, Code: code})
	}
	return out, nil
}

func translateFunction(fn Function, tier arch.Tier) ([]Instr, error) {
	body := fn.Body
	pos := 0
	var out []Instr

	for pos < len(body) {
		opByte := body[pos]
		start := pos
		pos++

		switch opByte {
		case wasmOpI32Const:
			v, n, err := decodeSLEB64(body[pos:])
			if err != nil {
				return nil, &WasmParsingError{Reason: err.Error()}
			}
			pos += n
			out = append(out, Instr{Op: IRConst, Const: float64(v)})

		case wasmOpI64Const:
			if tier < arch.Arch128 {
				return nil, &InstructionArchitectureMismatchError{Required: arch.Arch128.String(), Target: tier.String()}
			}
			v, n, err := decodeSLEB64(body[pos:])
			if err != nil {
				return nil, &WasmParsingError{Reason: err.Error()}
			}
			pos += n
			out = append(out, Instr{Op: IRConst, Const: float64(v), WideInt: true})

		case wasmOpLocalGet:
			idx, n, err := decodeULEB32(body[pos:])
			if err != nil {
				return nil, &WasmParsingError{Reason: err.Error()}
			}
			pos += n
			out = append(out, Instr{Op: IRLocalGet, Local: idx})

		case wasmOpLocalSet, wasmOpLocalTee:
			idx, n, err := decodeULEB32(body[pos:])
			if err != nil {
				return nil, &WasmParsingError{Reason: err.Error()}
			}
			pos += n
			out = append(out, Instr{Op: IRLocalSet, Local: idx})
			if opByte == wasmOpLocalTee {
				// local.tee re-pushes the stored value; lower it as set
				// immediately followed by a get of the same slot.
				out = append(out, Instr{Op: IRLocalGet, Local: idx})
			}

		case wasmOpI32Add:
			out = append(out, Instr{Op: IRAdd})
		case wasmOpI32Sub:
			out = append(out, Instr{Op: IRSub})
		case wasmOpI32Mul:
			out = append(out, Instr{Op: IRMul})
		case wasmOpI32DivS:
			out = append(out, Instr{Op: IRDiv})

		case wasmOpI64Add, wasmOpI64Sub, wasmOpI64Mul, wasmOpI64DivS:
			if tier < arch.Arch128 {
				return nil, &InstructionArchitectureMismatchError{Required: arch.Arch128.String(), Target: tier.String()}
			}
			out = append(out, Instr{Op: i64BinOp(opByte), WideInt: true})

		case wasmOpDrop:
			out = append(out, Instr{Op: IRDrop})
		case wasmOpReturn:
			out = append(out, Instr{Op: IRReturn})
		case wasmOpEnd:
			return out, nil

		default:
			return nil, &UnsupportedInstructionError{Instruction: fmt.Sprintf("0x%02x", opByte), Position: start}
		}
	}
	return nil, &WasmParsingError{Reason: "function body missing end opcode"}
}

func i64BinOp(opByte byte) IROp {
	switch opByte {
	case wasmOpI64Add:
		return IRAdd
	case wasmOpI64Sub:
		return IRSub
	case wasmOpI64Mul:
		return IRMul
	default:
		return IRDiv
	}
}
