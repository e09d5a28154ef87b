package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModuleDecodesSimpleFunction(t *testing.T) {
	body := (&wasmBuilder{}).i32Const(2).i32Const(3).op(wasmOpI32Add).body
	data := buildModule(0, body)

	mod, err := ParseModule(data)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)
	assert.Equal(t, uint32(0), mod.Functions[0].NumLocals)
}

func TestParseModuleDecodesLocalCount(t *testing.T) {
	body := (&wasmBuilder{}).localGet(0).body
	data := buildModule(2, body)

	mod, err := ParseModule(data)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)
	assert.Equal(t, uint32(2), mod.Functions[0].NumLocals)
}

func TestParseModuleRejectsBadMagic(t *testing.T) {
	data := buildModule(0, (&wasmBuilder{}).i32Const(1).body)
	data[0] = 0xff

	_, err := ParseModule(data)
	var parseErr *WasmParsingError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseModuleRejectsShortInput(t *testing.T) {
	_, err := ParseModule([]byte{0, 1})
	var parseErr *WasmParsingError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseModuleSkipsUnknownSections(t *testing.T) {
	body := (&wasmBuilder{}).i32Const(5).body
	data := buildModule(0, body)

	// splice an unrecognized section (id 1, the Type section) in front
	// of the Code section to confirm it is skipped rather than
	// misinterpreted.
	unknown := append([]byte{1}, encodeULEB32(3)...)
	unknown = append(unknown, 0xde, 0xad, 0xbe)
	spliced := append(append(append([]byte{}, data[:8]...), unknown...), data[8:]...)

	mod, err := ParseModule(spliced)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)
}

func TestDecodeULEB32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20} {
		enc := encodeULEB32(v)
		got, n, err := decodeULEB32(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}

func TestDecodeSLEB64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 1000, -1000, 1 << 40, -(1 << 40)} {
		enc := encodeSLEB64(v)
		got, n, err := decodeSLEB64(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}
