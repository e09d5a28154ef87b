package opcode

import "github.com/synerthink/dotlanth/pkg/arch"

// Kind is the closed, tiered sum of opcode families. The set is finite and
// tagged rather than dispatched through an interface, per the source
// pattern's disciplined re-architecture (tagged variants over trait
// objects/vtables).
type Kind uint8

const (
	// Arithmetic — available from Arch32.
	Add Kind = iota
	Sub
	Mul
	Div
	Mod
	Neg
	Cmp
	// Push seeds the operand stack with an immediate float64 constant,
	// carried in the instruction's Value field. The transpiler's constant
	// emission (pkg/transpiler) is the primary producer of this opcode.
	Push

	// Memory — available from Arch32.
	Load
	Store

	// ControlFlow — available from Arch32.
	Jmp
	JmpIf
	Call
	Return

	// BigInt — available from Arch128.
	BigIntAdd
	BigIntSub
	BigIntMul
	BigIntDiv
	BigIntMod
	BigIntPow
	BigIntSqrt
	BigIntGcd
	BigIntLcm
	BigIntFromInt
	BigIntToInt
	BigIntCmp
	BigIntIsZero
	BigIntIsNegative
	BigIntAbs

	// Crypto — available from Arch32.
	HashSHA256
	HashBlake3
	SignEd25519
	VerifyEd25519
	SignSecp256k1
	VerifySecp256k1
	EncryptAESGCM
	DecryptAESGCM
	EncryptChaCha20Poly1305
	DecryptChaCha20Poly1305
	SecureRandom
	ZkProof
	ZkVerify

	// State — available from Arch32.
	StateRead
	StateWrite
	StateCommit
	StateRollback
	StateMerkle
	StateSnapshot
	StateRestore

	// Parallel — available from Arch32.
	ParaDotSpawn
	ParaDotSync
	ParaDotMessage
	ParaDotJoin
	Atomic
	Barrier
)

// requiredTier maps an opcode to the minimum architecture tier at which it
// becomes available, enforcing the superset lattice from pkg/arch.
var requiredTier = map[Kind]arch.Tier{
	BigIntAdd:        arch.Arch128,
	BigIntSub:        arch.Arch128,
	BigIntMul:        arch.Arch128,
	BigIntDiv:        arch.Arch128,
	BigIntMod:        arch.Arch128,
	BigIntPow:        arch.Arch128,
	BigIntSqrt:       arch.Arch128,
	BigIntGcd:        arch.Arch128,
	BigIntLcm:        arch.Arch128,
	BigIntFromInt:    arch.Arch128,
	BigIntToInt:      arch.Arch128,
	BigIntCmp:        arch.Arch128,
	BigIntIsZero:     arch.Arch128,
	BigIntIsNegative: arch.Arch128,
	BigIntAbs:        arch.Arch128,
}

// RequiredTier returns the minimum tier required to execute k. Opcodes not
// present in the map require only the base tier, Arch32.
func (k Kind) RequiredTier() arch.Tier {
	if t, ok := requiredTier[k]; ok {
		return t
	}
	return arch.Arch32
}

// AvailableAt reports whether opcode k may run on an executor of tier t.
func (k Kind) AvailableAt(t arch.Tier) bool {
	return t >= k.RequiredTier()
}

func (k Kind) IsBigInt() bool {
	return k >= BigIntAdd && k <= BigIntAbs
}

func (k Kind) IsCrypto() bool {
	return k >= HashSHA256 && k <= ZkVerify
}

func (k Kind) IsState() bool {
	return k >= StateRead && k <= StateRestore
}

func (k Kind) IsParallel() bool {
	return k >= ParaDotSpawn && k <= Barrier
}
