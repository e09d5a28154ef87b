package executor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/synerthink/dotlanth/pkg/arch"
)

// headerMagic identifies a Dotlanth bytecode image. The four bytes spell
// "DOTB" (Dot Bytecode).
var headerMagic = [4]byte{'D', 'O', 'T', 'B'}

// HeaderSize is the fixed length of a BytecodeHeader on the wire:
// 4 bytes magic + 1 byte tier + 2 bytes version + 4 bytes instruction count.
const HeaderSize = 4 + 1 + 2 + 4

// ErrInvalidMagic is returned when a header's magic bytes don't match.
var ErrInvalidMagic = errors.New("executor: invalid magic number")

// BytecodeHeader is the fixed-size preamble every bytecode image carries,
// naming the architecture tier it was compiled for.
type BytecodeHeader struct {
	Tier             arch.Tier
	Version          uint16
	InstructionCount uint32
}

// ParseHeader decodes and validates the fixed-size header at the start of a
// bytecode image.
func ParseHeader(data []byte) (*BytecodeHeader, error) {
	if len(data) < HeaderSize {
		return nil, ErrBytecodeTooShort
	}
	if [4]byte(data[0:4]) != headerMagic {
		return nil, fmt.Errorf("%w: %w", ErrHeaderParse, ErrInvalidMagic)
	}
	tier, err := arch.ParseTier(data[4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderParse, err)
	}
	return &BytecodeHeader{
		Tier:             tier,
		Version:          binary.BigEndian.Uint16(data[5:7]),
		InstructionCount: binary.BigEndian.Uint32(data[7:11]),
	}, nil
}

// ToBytes encodes the header back to its wire form, used by test fixtures
// and the transpiler's bytecode emission stage.
func (h BytecodeHeader) ToBytes() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], headerMagic[:])
	buf[4] = byte(h.Tier)
	binary.BigEndian.PutUint16(buf[5:7], h.Version)
	binary.BigEndian.PutUint32(buf[7:11], h.InstructionCount)
	return buf
}
