package transpiler

import (
	"encoding/binary"
	"fmt"
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d} // "\0asm"

const wasmVersion = 1

const (
	secCode = 10
)

// Function is one decoded WASM function: its declared local count (in
// addition to the zero implicit parameters this decoder supports, see
// the package doc) and its raw expression bytes.
type Function struct {
	NumLocals uint32
	Body      []byte
}

// Module is the parsed form of a WASM binary, reduced to what Translate
// needs: the function bodies from the Code section.
type Module struct {
	Functions []Function
}

// ParseModule decodes a WASM binary into a Module, failing WasmParsing
// on a malformed header or section framing. Only the Code section is
// decoded into function bodies; every other section is skipped by its
// declared length, so a well-formed module with types, exports,
// imports, etc. parses successfully even though those sections are not
// interpreted.
func ParseModule(data []byte) (*Module, error) {
	if len(data) < 8 {
		return nil, &WasmParsingError{Reason: "input shorter than the module header"}
	}
	if [4]byte(data[0:4]) != wasmMagic {
		return nil, &WasmParsingError{Reason: "missing \\0asm magic"}
	}
	if binary.LittleEndian.Uint32(data[4:8]) != wasmVersion {
		return nil, &WasmParsingError{Reason: "unsupported wasm version"}
	}

	mod := &Module{}
	pos := 8
	for pos < len(data) {
		id := data[pos]
		pos++
		size, n, err := decodeULEB32(data[pos:])
		if err != nil {
			return nil, &WasmParsingError{Reason: fmt.Sprintf("section %d: %v", id, err)}
		}
		pos += n
		if pos+int(size) > len(data) {
			return nil, &WasmParsingError{Reason: fmt.Sprintf("section %d: declared size exceeds input", id)}
		}
		payload := data[pos : pos+int(size)]
		pos += int(size)

		if id == secCode {
			funcs, err := decodeCodeSection(payload)
			if err != nil {
				return nil, err
			}
			mod.Functions = funcs
		}
	}
	return mod, nil
}

// decodeCodeSection decodes the Code section's function bodies: a
// vector of (size, body) pairs where each body starts with a vector of
// (count, valtype) local declarations followed by the expression bytes.
func decodeCodeSection(data []byte) ([]Function, error) {
	count, n, err := decodeULEB32(data)
	if err != nil {
		return nil, &WasmParsingError{Reason: "code section: " + err.Error()}
	}
	pos := n

	funcs := make([]Function, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return nil, &WasmParsingError{Reason: "code section: truncated function entry"}
		}
		bodySize, n, err := decodeULEB32(data[pos:])
		if err != nil {
			return nil, &WasmParsingError{Reason: "code section: " + err.Error()}
		}
		pos += n
		if pos+int(bodySize) > len(data) {
			return nil, &WasmParsingError{Reason: "code section: function body exceeds section"}
		}
		body := data[pos : pos+int(bodySize)]
		pos += int(bodySize)

		localGroups, n, err := decodeULEB32(body)
		if err != nil {
			return nil, &WasmParsingError{Reason: "code section: " + err.Error()}
		}
		bpos := n
		var numLocals uint32
		for g := uint32(0); g < localGroups; g++ {
			groupCount, n, err := decodeULEB32(body[bpos:])
			if err != nil {
				return nil, &WasmParsingError{Reason: "code section: " + err.Error()}
			}
			bpos += n + 1 // +1 skips the valtype byte
			numLocals += groupCount
		}

		funcs = append(funcs, Function{NumLocals: numLocals, Body: body[bpos:]})
	}
	return funcs, nil
}

// decodeULEB32 decodes an unsigned LEB128-encoded uint32 from the start
// of b, returning the value and the number of bytes consumed.
func decodeULEB32(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < len(b); i++ {
		byt := b[i]
		result |= uint32(byt&0x7f) << shift
		if byt&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 32 {
			return 0, 0, fmt.Errorf("uleb128 overflow")
		}
	}
	return 0, 0, fmt.Errorf("truncated uleb128")
}

// decodeSLEB64 decodes a signed LEB128-encoded int64 from the start of
// b, returning the value and the number of bytes consumed.
func decodeSLEB64(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	var byt byte
	i := 0
	for {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("truncated sleb128")
		}
		byt = b[i]
		result |= int64(byt&0x7f) << shift
		shift += 7
		i++
		if byt&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, 0, fmt.Errorf("sleb128 overflow")
		}
	}
	if shift < 64 && byt&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i, nil
}
