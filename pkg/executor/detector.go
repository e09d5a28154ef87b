// Package executor implements the multi-architecture bytecode executor
// (C4): header-based architecture detection, an operand stack, and the
// capability-gate -> execute -> meter -> halt-on-error dispatch loop.
// Grounded on original_source's crates/dotvm/core/src/vm/architecture_detector.rs,
// re-expressed with Go errors.Is sentinels instead of a closed Rust enum.
package executor

import (
	"errors"
	"fmt"

	"github.com/synerthink/dotlanth/pkg/arch"
)

var (
	ErrBytecodeTooShort        = errors.New("executor: bytecode too short for header")
	ErrHeaderParse             = errors.New("executor: header parse error")
	ErrUnsupportedArchitecture = errors.New("executor: unsupported architecture")
	ErrRequiresHigherArch      = errors.New("executor: requires a higher architecture tier")
)

// DetectedArch reports the bytecode's declared tier, the tier it will
// actually execute on, and whether that differs (compatibility mode).
type DetectedArch struct {
	Required          arch.Tier
	Execution         arch.Tier
	CompatibilityMode bool
}

// Detector analyzes a bytecode header to determine execution compatibility
// against an optional preferred (host) tier.
type Detector struct{}

// NewDetector returns a stateless architecture detector.
func NewDetector() *Detector { return &Detector{} }

// Detect parses bytecode's header and determines the tier it will run at.
// If preferred is non-nil, it must be able to run the bytecode's required
// tier (preferred.WordSize >= required.WordSize) or RequiresHigherArch is
// returned. With no preference, the bytecode runs at its own required tier
// and compatibility_mode is always false.
func (d *Detector) Detect(bytecode []byte, preferred *arch.Tier) (DetectedArch, error) {
	header, err := ParseHeader(bytecode)
	if err != nil {
		return DetectedArch{}, err
	}

	required := header.Tier
	if !required.Valid() {
		return DetectedArch{}, fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, required)
	}

	if preferred == nil {
		return DetectedArch{Required: required, Execution: required, CompatibilityMode: false}, nil
	}

	if !d.IsCompatible(required, *preferred) {
		return DetectedArch{}, fmt.Errorf("%w: %s", ErrRequiresHigherArch, required)
	}

	return DetectedArch{
		Required:          required,
		Execution:         *preferred,
		CompatibilityMode: *preferred != required,
	}, nil
}

// IsCompatible reports whether targetVMArch can execute bytecode written
// for bytecodeArch: a higher-bit architecture runs lower-bit bytecode.
func (d *Detector) IsCompatible(bytecodeArch, targetVMArch arch.Tier) bool {
	return targetVMArch.CompatibleWith(bytecodeArch)
}
