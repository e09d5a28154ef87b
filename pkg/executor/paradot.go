package executor

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/synerthink/dotlanth/pkg/opcode"
	"github.com/synerthink/dotlanth/pkg/paradot"
)

// paradot instruction field layout. ParaDotSpawn/Join address a dot by
// Instruction.Key; ParaDotSync/Message/Atomic/Barrier pack their remaining
// fields into Instruction.Value as a flat tag-length-value sequence, so a
// single Instruction carries an entire ParaDot request without growing the
// Instruction struct per opcode.
const (
	tlvSpawnProgram = 0x01 // ParaDotSpawn: nested instruction stream for the sub-dot
	tlvSyncKind     = 0x01 // ParaDotSync
	tlvSyncAction   = 0x02
	tlvSyncPermits  = 0x03
	tlvSyncWrite    = 0x04
	tlvMsgSender    = 0x01 // ParaDotMessage
	tlvMsgType      = 0x02
	tlvMsgContent   = 0x03
	tlvAtomicKind   = 0x01 // Atomic
	tlvAtomicValue  = 0x02
	tlvBarrierParty = 0x01 // Barrier
)

func decodeTLV(data []byte) (map[byte][]byte, error) {
	fields := make(map[byte][]byte)
	for len(data) > 0 {
		if len(data) < 5 {
			return nil, fmt.Errorf("executor: truncated TLV entry")
		}
		tag := data[0]
		n := binary.BigEndian.Uint32(data[1:5])
		data = data[5:]
		if uint32(len(data)) < n {
			return nil, fmt.Errorf("executor: TLV entry for tag %d wants %d bytes, only %d remain", tag, n, len(data))
		}
		fields[tag] = data[:n]
		data = data[n:]
	}
	return fields, nil
}

func encodeTLV(fields map[byte][]byte) []byte {
	out := make([]byte, 0, 32)
	for tag, v := range fields {
		var hdr [5]byte
		hdr[0] = tag
		binary.BigEndian.PutUint32(hdr[1:], uint32(len(v)))
		out = append(out, hdr[:]...)
		out = append(out, v...)
	}
	return out
}

// EncodeSubProgram packs a nested instruction stream as the Value payload
// for a ParaDotSpawn instruction. Each sub-instruction is encoded as
// [kind byte][keyLen uint16][key][valLen uint32][value].
func EncodeSubProgram(instrs []Instruction) []byte {
	var buf []byte
	for _, in := range instrs {
		buf = append(buf, byte(in.Kind))
		var keyLen [2]byte
		binary.BigEndian.PutUint16(keyLen[:], uint16(len(in.Key)))
		buf = append(buf, keyLen[:]...)
		buf = append(buf, in.Key...)
		var valLen [4]byte
		binary.BigEndian.PutUint32(valLen[:], uint32(len(in.Value)))
		buf = append(buf, valLen[:]...)
		buf = append(buf, in.Value...)
	}
	return encodeTLV(map[byte][]byte{tlvSpawnProgram: buf})
}

func decodeSubProgram(buf []byte) ([]Instruction, error) {
	var instrs []Instruction
	for len(buf) > 0 {
		if len(buf) < 3 {
			return nil, fmt.Errorf("executor: truncated sub-program instruction")
		}
		kind := opcode.Kind(buf[0])
		keyLen := binary.BigEndian.Uint16(buf[1:3])
		buf = buf[3:]
		if uint16(len(buf)) < keyLen {
			return nil, fmt.Errorf("executor: truncated sub-program key")
		}
		key := string(buf[:keyLen])
		buf = buf[keyLen:]
		if len(buf) < 4 {
			return nil, fmt.Errorf("executor: truncated sub-program value length")
		}
		valLen := binary.BigEndian.Uint32(buf[:4])
		buf = buf[4:]
		if uint32(len(buf)) < valLen {
			return nil, fmt.Errorf("executor: truncated sub-program value")
		}
		instrs = append(instrs, Instruction{Kind: kind, Key: key, Value: buf[:valLen]})
		buf = buf[valLen:]
	}
	return instrs, nil
}

// executeParallel dispatches a Parallel-kind instruction onto e.ParaDot,
// the ParaDot scheduler (pkg/paradot) that hosts every spawned sub-dot and
// named synchronization primitive. Unlike every other opcode family,
// Parallel opcodes do not run inline: Spawn forks a new Executor sharing
// this one's tier, gate, meter, state backend and ParaDot scheduler to run
// the sub-dot's own instruction stream as a goroutine.
func (e *Executor) executeParallel(instr Instruction) error {
	if e.ParaDot == nil {
		return fmt.Errorf("executor: no ParaDot scheduler configured")
	}
	switch instr.Kind {
	case opcode.ParaDotSpawn:
		return e.executeSpawn(instr)
	case opcode.ParaDotJoin:
		result, err := e.ParaDot.Join(instr.Key)
		if err != nil {
			return err
		}
		e.Stack.Push(opcode.BigIntVal(bytesToBigInt(result.Output)))
		return nil
	case opcode.ParaDotMessage:
		fields, err := decodeTLV(instr.Value)
		if err != nil {
			return err
		}
		e.ParaDot.Message(instr.Key, paradot.Message{
			Sender:      string(fields[tlvMsgSender]),
			Content:     fields[tlvMsgContent],
			MessageType: string(fields[tlvMsgType]),
		})
		return nil
	case opcode.ParaDotSync:
		return e.executeSync(instr)
	case opcode.Atomic:
		return e.executeAtomic(instr)
	case opcode.Barrier:
		fields, err := decodeTLV(instr.Value)
		if err != nil {
			return err
		}
		partyField, ok := fields[tlvBarrierParty]
		if !ok || len(partyField) != 4 {
			return fmt.Errorf("executor: barrier instruction missing party count")
		}
		e.ParaDot.Barrier(instr.Key, int(binary.BigEndian.Uint32(partyField)))
		return nil
	default:
		return fmt.Errorf("executor: unhandled parallel opcode %v", instr.Kind)
	}
}

func (e *Executor) executeSpawn(instr Instruction) error {
	fields, err := decodeTLV(instr.Value)
	if err != nil {
		return err
	}
	program, err := decodeSubProgram(fields[tlvSpawnProgram])
	if err != nil {
		return err
	}

	// Sub-dots run on a forked executor sharing tier, gate and meter (so
	// capability checks and quota consumption apply uniformly) as well as
	// the state backend and ParaDot scheduler, but with their own operand
	// stack and memory manager — a spawned dot may itself spawn further
	// dots on the same scheduler.
	sub := New(e.Tier)
	sub.Gate = e.Gate
	sub.Meter = e.Meter
	sub.State = e.State
	sub.ParaDot = e.ParaDot

	fn := func(args paradot.Args) ([]byte, error) {
		if err := sub.Run(program); err != nil {
			return nil, err
		}
		if sub.Stack.Len() == 0 {
			return nil, nil
		}
		v, err := sub.Stack.Peek()
		if err != nil {
			return nil, err
		}
		// Join decodes the output as an unsigned big-endian integer, so a
		// float top is sent as its integer magnitude.
		return v.Big().Bytes(), nil
	}
	return e.ParaDot.Spawn(instr.Key, fn, paradot.Args{})
}

func (e *Executor) executeSync(instr Instruction) error {
	fields, err := decodeTLV(instr.Value)
	if err != nil {
		return err
	}
	kindField, ok := fields[tlvSyncKind]
	if !ok || len(kindField) != 1 {
		return fmt.Errorf("executor: sync instruction missing kind")
	}
	actionField, ok := fields[tlvSyncAction]
	if !ok || len(actionField) != 1 {
		return fmt.Errorf("executor: sync instruction missing action")
	}
	var permits int
	if v, ok := fields[tlvSyncPermits]; ok && len(v) == 4 {
		permits = int(binary.BigEndian.Uint32(v))
	}
	req := paradot.SyncRequest{
		Kind:    paradot.SyncKind(kindField[0]),
		ID:      instr.Key,
		Action:  paradot.SyncAction(actionField[0]),
		Permits: permits,
		Write:   len(fields[tlvSyncWrite]) == 1 && fields[tlvSyncWrite][0] == 1,
	}
	return e.ParaDot.Sync(req)
}

func (e *Executor) executeAtomic(instr Instruction) error {
	fields, err := decodeTLV(instr.Value)
	if err != nil {
		return err
	}
	kindField, ok := fields[tlvAtomicKind]
	if !ok || len(kindField) != 1 {
		return fmt.Errorf("executor: atomic instruction missing kind")
	}
	var value uint64
	if v, ok := fields[tlvAtomicValue]; ok && len(v) == 8 {
		value = binary.BigEndian.Uint64(v)
	}
	result, err := e.ParaDot.Atomic(paradot.AtomicRequest{
		Kind:  paradot.AtomicKind(kindField[0]),
		ID:    instr.Key,
		Value: value,
	})
	if err != nil {
		return err
	}
	e.Stack.Push(opcode.BigIntVal(new(big.Int).SetUint64(result)))
	return nil
}
