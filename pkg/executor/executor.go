package executor

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/synerthink/dotlanth/internal/metrics"
	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/crypto"
	"github.com/synerthink/dotlanth/pkg/opcode"
	"github.com/synerthink/dotlanth/pkg/paradot"
	"github.com/synerthink/dotlanth/pkg/vmmem"
)

// bytesToBigInt interprets raw bytes as an unsigned big-endian integer, the
// representation used to push hash digests and arbitrary byte payloads onto
// the operand stack's BigInt slot.
func bytesToBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Gate authorizes an opcode before it executes, backed by a capability set
// in a full deployment (pkg/security). Implementations should be cheap;
// the dispatch loop calls Allow once per instruction.
type Gate interface {
	Allow(k opcode.Kind) error
}

// Meter accounts for the resources an opcode consumed, backed by a quota
// tracker in a full deployment (pkg/security). Charge is called once per
// successfully executed instruction, after execution, so it can account
// for actual cost rather than a static estimate.
type Meter interface {
	Charge(k opcode.Kind) error
}

// AllowAll is a Gate that authorizes every opcode, used when no capability
// enforcement is configured (tests, embedded/offline execution).
type AllowAll struct{}

func (AllowAll) Allow(opcode.Kind) error { return nil }

// Unmetered is a Meter that never charges, used alongside AllowAll.
type Unmetered struct{}

func (Unmetered) Charge(opcode.Kind) error { return nil }

// StateBackend is the subset of pkg/stateexec.Executor the dispatch loop
// needs to run State* opcodes, expressed as an interface so pkg/executor
// does not import pkg/mvcc or pkg/snapshot transitively.
type StateBackend interface {
	Read(key string) ([]byte, bool, error)
	Write(key string, value []byte)
	Delete(key string)
	Commit() ([32]byte, error)
	Rollback()
}

// Instruction is one decoded bytecode operation. Arithmetic and BigInt
// opcodes operate on the operand stack; State opcodes carry an explicit
// key/value pair; Crypto operands are passed as raw byte arguments;
// Parallel opcodes address a dot or named primitive through Key and pack
// their remaining fields into Value as a tag-length-value sequence (see
// paradot.go).
type Instruction struct {
	Kind  opcode.Kind
	Key   string
	Value []byte
}

// Executor runs a sequence of instructions against an operand stack, an
// architecture-tiered memory manager, and pluggable capability/metering
// hooks, halting on the first error — the dispatch loop from spec.md §4.4:
// gate -> execute -> meter -> halt-on-error.
type Executor struct {
	Tier  arch.Tier
	Mem   *vmmem.Manager
	Stack *opcode.Stack
	Gate  Gate
	Meter Meter
	State StateBackend

	// ParaDot hosts every dot this executor spawns, joins, messages or
	// synchronizes with via a Parallel-kind opcode. nil means Parallel
	// opcodes are unsupported — set it to wire in pkg/paradot.
	ParaDot *paradot.Scheduler

	// LocalsBase is the memory address of slot 0 in the Load/Store
	// opcodes' local-variable addressing scheme (see AllocateLocals):
	// Load/Store's Key names a decimal local index, resolved to
	// LocalsBase + index*8.
	LocalsBase int64
}

// New constructs an executor for the given tier with a fresh operand stack
// and memory manager. Gate and Meter default to AllowAll/Unmetered; set
// them directly to wire in pkg/security enforcement. ParaDot defaults to
// nil; set it to a *paradot.Scheduler to enable Parallel opcodes.
func New(tier arch.Tier) *Executor {
	return &Executor{
		Tier:  tier,
		Mem:   vmmem.New(tier),
		Stack: opcode.NewStack(),
		Gate:  AllowAll{},
		Meter: Unmetered{},
	}
}

// AllocateLocals reserves n eight-byte local-variable slots in the
// executor's memory manager and records their base address, so that
// subsequently run Load/Store instructions addressed by local index (as
// produced by pkg/transpiler) resolve to real memory. Must be called
// before running bytecode that uses local slots.
func (e *Executor) AllocateLocals(n int) error {
	if n <= 0 {
		return nil
	}
	h, err := e.Mem.Allocate(n * 8)
	if err != nil {
		return fmt.Errorf("executor: allocating %d local slots: %w", n, err)
	}
	base, err := e.Mem.Base(h)
	if err != nil {
		return err
	}
	if err := e.Mem.Protect(h, vmmem.ProtRW); err != nil {
		return err
	}
	e.LocalsBase = base
	return nil
}

// Run executes instrs in order, halting and returning the first error
// encountered (from tier gating, capability gating, opcode execution, or
// metering).
func (e *Executor) Run(instrs []Instruction) error {
	for i, instr := range instrs {
		if !instr.Kind.AvailableAt(e.Tier) {
			return fmt.Errorf("executor: instruction %d (%v): %w: requires %s, executor is %s",
				i, instr.Kind, ErrRequiresHigherArch, instr.Kind.RequiredTier(), e.Tier)
		}
		if err := e.Gate.Allow(instr.Kind); err != nil {
			return fmt.Errorf("executor: instruction %d (%v): capability denied: %w", i, instr.Kind, err)
		}
		timer := metrics.NewTimer()
		err := e.execute(instr)
		timer.ObserveDurationVec(metrics.OpcodeDuration, strconv.Itoa(int(instr.Kind)))
		if err != nil {
			return fmt.Errorf("executor: instruction %d (%v): %w", i, instr.Kind, err)
		}
		if err := e.Meter.Charge(instr.Kind); err != nil {
			return fmt.Errorf("executor: instruction %d (%v): quota exceeded: %w", i, instr.Kind, err)
		}
		metrics.InstructionsExecutedTotal.WithLabelValues(e.Tier.String()).Inc()
	}
	return nil
}

func (e *Executor) execute(instr Instruction) error {
	switch {
	case instr.Kind == opcode.Push:
		return e.executePush(instr)
	case instr.Kind == opcode.Load:
		return e.executeLoad(instr)
	case instr.Kind == opcode.Store:
		return e.executeStore(instr)
	case !instr.Kind.IsBigInt() && !instr.Kind.IsCrypto() && !instr.Kind.IsState() && !instr.Kind.IsParallel():
		return opcode.Arithmetic(instr.Kind, e.Stack)
	case instr.Kind.IsBigInt():
		return opcode.BigInt(instr.Kind, e.Tier, e.Stack)
	case instr.Kind.IsCrypto():
		return e.executeCrypto(instr)
	case instr.Kind.IsState():
		return e.executeState(instr)
	case instr.Kind.IsParallel():
		return e.executeParallel(instr)
	default:
		return fmt.Errorf("executor: unhandled opcode %v", instr.Kind)
	}
}

// executePush decodes an 8-byte big-endian float64 immediate from
// instr.Value and pushes it onto the operand stack, the only way bytecode
// seeds the stack with a literal constant.
func (e *Executor) executePush(instr Instruction) error {
	if len(instr.Value) != 8 {
		return fmt.Errorf("executor: push requires an 8-byte float64 immediate, got %d bytes", len(instr.Value))
	}
	bits := binary.BigEndian.Uint64(instr.Value)
	e.Stack.Push(opcode.Float(math.Float64frombits(bits)))
	return nil
}

// localAddress resolves an Instruction.Key holding a decimal local-slot
// index into an absolute memory address, relative to LocalsBase.
func localAddress(base int64, key string) (int64, error) {
	idx, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("executor: local slot key %q is not a decimal index: %w", key, err)
	}
	return base + idx*8, nil
}

// executeLoad reads the float64 stored at the local slot named by
// instr.Key and pushes it onto the operand stack.
func (e *Executor) executeLoad(instr Instruction) error {
	addr, err := localAddress(e.LocalsBase, instr.Key)
	if err != nil {
		return err
	}
	var buf [8]byte
	for i := range buf {
		b, err := e.Mem.Load(addr + int64(i))
		if err != nil {
			return err
		}
		buf[i] = b
	}
	e.Stack.Push(opcode.Float(math.Float64frombits(binary.BigEndian.Uint64(buf[:]))))
	return nil
}

// executeStore pops the top of the operand stack and writes it to the
// local slot named by instr.Key.
func (e *Executor) executeStore(instr Instruction) error {
	v, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	addr, err := localAddress(e.LocalsBase, instr.Key)
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.Float64()))
	for i, b := range buf {
		if err := e.Mem.Store(addr+int64(i), b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) executeCrypto(instr Instruction) error {
	switch instr.Kind {
	case opcode.HashSHA256:
		digest := crypto.HashSHA256(instr.Value)
		e.Stack.Push(opcode.BigIntVal(bytesToBigInt(digest[:])))
		return nil
	case opcode.HashBlake3:
		digest := crypto.HashBlake3(instr.Value)
		e.Stack.Push(opcode.BigIntVal(bytesToBigInt(digest[:])))
		return nil
	default:
		return fmt.Errorf("executor: crypto opcode %v not wired into the dispatch loop, call pkg/crypto directly", instr.Kind)
	}
}

func (e *Executor) executeState(instr Instruction) error {
	if e.State == nil {
		return fmt.Errorf("executor: no state backend configured")
	}
	switch instr.Kind {
	case opcode.StateRead:
		val, ok, err := e.State.Read(instr.Key)
		if err != nil {
			return err
		}
		if ok {
			e.Stack.Push(opcode.BigIntVal(bytesToBigInt(val)))
		}
		return nil
	case opcode.StateWrite:
		e.State.Write(instr.Key, instr.Value)
		return nil
	case opcode.StateRollback:
		e.State.Rollback()
		return nil
	case opcode.StateCommit:
		_, err := e.State.Commit()
		return err
	default:
		return fmt.Errorf("executor: state opcode %v not wired into the dispatch loop", instr.Kind)
	}
}
