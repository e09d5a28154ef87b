package executor

import (
	"encoding/binary"
	"fmt"

	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/opcode"
)

// Image is a complete bytecode program: the fixed header plus its
// instruction stream, the unit pkg/transpiler's Generate phase produces
// and Run consumes.
type Image struct {
	Header       BytecodeHeader
	Instructions []Instruction
}

// NewImage builds an Image from a tier, version, and instruction stream,
// filling in the header's instruction count from len(instrs).
func NewImage(tier arch.Tier, version uint16, instrs []Instruction) Image {
	return Image{
		Header: BytecodeHeader{
			Tier:             tier,
			Version:          version,
			InstructionCount: uint32(len(instrs)),
		},
		Instructions: instrs,
	}
}

// ToBytes serializes img as header-then-code: the header's fixed bytes
// followed by one TLV record per instruction — a 1-byte Kind, a 2-byte
// big-endian Key length + Key bytes, and a 2-byte big-endian Value
// length + Value bytes.
func (img Image) ToBytes() []byte {
	buf := img.Header.ToBytes()
	for _, instr := range img.Instructions {
		buf = append(buf, byte(instr.Kind))

		keyBytes := []byte(instr.Key)
		keyLen := make([]byte, 2)
		binary.BigEndian.PutUint16(keyLen, uint16(len(keyBytes)))
		buf = append(buf, keyLen...)
		buf = append(buf, keyBytes...)

		valLen := make([]byte, 2)
		binary.BigEndian.PutUint16(valLen, uint16(len(instr.Value)))
		buf = append(buf, valLen...)
		buf = append(buf, instr.Value...)
	}
	return buf
}

// ParseImage decodes a complete bytecode image, validating that the
// header's declared instruction count matches the number of TLV records
// actually present.
func ParseImage(data []byte) (*Image, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	pos := HeaderSize
	instrs := make([]Instruction, 0, header.InstructionCount)
	for pos < len(data) {
		if pos+3 > len(data) {
			return nil, fmt.Errorf("%w: truncated instruction record", ErrHeaderParse)
		}
		kind := opcode.Kind(data[pos])
		pos++

		keyLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+keyLen > len(data) {
			return nil, fmt.Errorf("%w: truncated instruction key", ErrHeaderParse)
		}
		key := string(data[pos : pos+keyLen])
		pos += keyLen

		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated instruction value length", ErrHeaderParse)
		}
		valLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+valLen > len(data) {
			return nil, fmt.Errorf("%w: truncated instruction value", ErrHeaderParse)
		}
		value := append([]byte(nil), data[pos:pos+valLen]...)
		pos += valLen

		instrs = append(instrs, Instruction{Kind: kind, Key: key, Value: value})
	}

	if uint32(len(instrs)) != header.InstructionCount {
		return nil, fmt.Errorf("%w: header declares %d instructions, found %d", ErrHeaderParse, header.InstructionCount, len(instrs))
	}

	return &Image{Header: *header, Instructions: instrs}, nil
}
