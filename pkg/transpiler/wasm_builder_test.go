package transpiler

// This file hand-assembles minimal single-function WASM binaries for
// tests, since no WASM assembler exists anywhere in the example pack.
// It only emits what ParseModule reads: the header and a Code section
// with one function body, skipping type/function/export sections
// entirely (ParseModule tolerates a module missing them, since it only
// interprets the Code section).

func encodeULEB32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func encodeSLEB64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// wasmBuilder assembles a single function's expression bytes.
type wasmBuilder struct {
	body []byte
}

func (b *wasmBuilder) i32Const(v int64) *wasmBuilder {
	b.body = append(b.body, wasmOpI32Const)
	b.body = append(b.body, encodeSLEB64(v)...)
	return b
}

func (b *wasmBuilder) i64Const(v int64) *wasmBuilder {
	b.body = append(b.body, wasmOpI64Const)
	b.body = append(b.body, encodeSLEB64(v)...)
	return b
}

func (b *wasmBuilder) localGet(idx uint32) *wasmBuilder {
	b.body = append(b.body, wasmOpLocalGet)
	b.body = append(b.body, encodeULEB32(idx)...)
	return b
}

func (b *wasmBuilder) localSet(idx uint32) *wasmBuilder {
	b.body = append(b.body, wasmOpLocalSet)
	b.body = append(b.body, encodeULEB32(idx)...)
	return b
}

func (b *wasmBuilder) localTee(idx uint32) *wasmBuilder {
	b.body = append(b.body, wasmOpLocalTee)
	b.body = append(b.body, encodeULEB32(idx)...)
	return b
}

func (b *wasmBuilder) op(opByte byte) *wasmBuilder {
	b.body = append(b.body, opByte)
	return b
}

// buildModule wraps body as a one-function Code section with numLocals
// declared locals (emitted as one local-declaration group of type i32
// 0x7f), producing a complete, parseable WASM binary.
func buildModule(numLocals uint32, body []byte) []byte {
	fullBody := body
	if len(fullBody) == 0 || fullBody[len(fullBody)-1] != wasmOpEnd {
		fullBody = append(append([]byte{}, body...), wasmOpEnd)
	}

	var funcBody []byte
	if numLocals > 0 {
		funcBody = append(funcBody, encodeULEB32(1)...)        // 1 local-decl group
		funcBody = append(funcBody, encodeULEB32(numLocals)...) // count
		funcBody = append(funcBody, 0x7f)                        // i32 valtype
	} else {
		funcBody = append(funcBody, encodeULEB32(0)...) // 0 local-decl groups
	}
	funcBody = append(funcBody, fullBody...)

	var codeSection []byte
	codeSection = append(codeSection, encodeULEB32(1)...) // 1 function
	codeSection = append(codeSection, encodeULEB32(uint32(len(funcBody)))...)
	codeSection = append(codeSection, funcBody...)

	var mod []byte
	mod = append(mod, wasmMagic[:]...)
	mod = append(mod, 1, 0, 0, 0) // version 1, little-endian
	mod = append(mod, secCode)
	mod = append(mod, encodeULEB32(uint32(len(codeSection)))...)
	mod = append(mod, codeSection...)
	return mod
}
