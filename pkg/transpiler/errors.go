// Package transpiler implements the WASM→DotVM pipeline (C5): parsing a
// WASM binary module into an internal AST, translating it into a tiered
// intermediate representation, running sound optimization passes over
// that IR, and generating a DotVM bytecode image. It also provides a
// JIT bytecode cache and a mtime-based hot reloader for watched source
// files.
//
// Grounded on original_source's crates/dotvm/compiler/src/transpiler/
// (three-phase parse/translate/generate pipeline and its named failure
// kinds) and spec.md §4.5. The WASM decoder here covers a deliberately
// bounded instruction subset — constants, local get/set/tee, drop,
// return, and the four basic binary arithmetic ops over closed
// (parameterless, branch-free)
// functions — sufficient to exercise the full pipeline end to end
// without reimplementing a general-purpose WASM interpreter; anything
// outside that subset fails UnsupportedInstruction rather than being
// silently accepted.
package transpiler

import "fmt"

// WasmParsingError reports a malformed WASM binary.
type WasmParsingError struct {
	Reason string
}

func (e *WasmParsingError) Error() string { return fmt.Sprintf("transpiler: wasm parsing failed: %s", e.Reason) }

// UnsupportedInstructionError reports a WASM opcode the translator does
// not recognize or has deliberately not implemented, at its byte offset
// within the function body.
type UnsupportedInstructionError struct {
	Instruction string
	Position    int
}

func (e *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf("transpiler: unsupported instruction %s at position %d", e.Instruction, e.Position)
}

// InstructionArchitectureMismatchError reports a WASM instruction whose
// faithful translation requires a higher DotVM tier than the translation
// target.
type InstructionArchitectureMismatchError struct {
	Required string
	Target   string
}

func (e *InstructionArchitectureMismatchError) Error() string {
	return fmt.Sprintf("transpiler: instruction requires architecture %s, target is %s", e.Required, e.Target)
}

// BytecodeGenerationError reports a failure while lowering IR into a
// bytecode image.
type BytecodeGenerationError struct {
	Reason string
}

func (e *BytecodeGenerationError) Error() string {
	return fmt.Sprintf("transpiler: bytecode generation failed: %s", e.Reason)
}
