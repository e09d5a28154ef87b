// Package security implements the capability-gated security kernel (C12):
// per-dot capability sets, resource quotas and metering, isolation
// contexts, a backpressured audit trail, and an X.509-based authority that
// issues signed capability certificates.
//
// Grounded on original_source's crates/dotvm/core/src/security/errors.rs
// (the error taxonomy, re-expressed as Go error structs instead of a
// closed Rust enum) and the teacher's pkg/security/ca.go (the certificate
// authority mechanics).
package security

import (
	"fmt"
	"time"

	"github.com/synerthink/dotlanth/pkg/opcode"
)

// CapabilityDeniedError reports an opcode execution refused despite a
// matching capability existing, due to condition mismatch or expiry.
type CapabilityDeniedError struct {
	OpcodeKind opcode.Kind
	Reason     string
}

func (e *CapabilityDeniedError) Error() string {
	return fmt.Sprintf("security: capability denied for opcode %v: %s", e.OpcodeKind, e.Reason)
}

// CapabilityNotFoundError reports that no capability for the opcode exists
// at all in the set checked.
type CapabilityNotFoundError struct {
	OpcodeKind opcode.Kind
}

func (e *CapabilityNotFoundError) Error() string {
	return fmt.Sprintf("security: no capability found for opcode %v", e.OpcodeKind)
}

// CapabilityExpiredError reports a capability that matched but had already
// expired at check time.
type CapabilityExpiredError struct {
	OpcodeKind opcode.Kind
	ExpiredAt  time.Time
}

func (e *CapabilityExpiredError) Error() string {
	return fmt.Sprintf("security: capability for opcode %v expired at %s", e.OpcodeKind, e.ExpiredAt)
}

// ResourceError reports one kind of quota exhaustion.
type ResourceError struct {
	Kind    string // "memory", "cpu_ms", "instructions", "file_descriptors", "network_bytes", "stack_depth"
	Current uint64
	Limit   uint64
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("security: %s limit exceeded: %d (limit %d)", e.Kind, e.Current, e.Limit)
}

// IsolationError reports a cross-dot boundary violation.
type IsolationError struct {
	DotID         string
	ViolationType string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("security: isolation boundary violation in dot %q: %s", e.DotID, e.ViolationType)
}

// AuditError reports a failure in the audit pipeline itself.
type AuditError struct {
	Reason string
}

func (e *AuditError) Error() string { return fmt.Sprintf("security: audit failure: %s", e.Reason) }

// ErrAuditBufferFull is returned by a Sink when its backpressure buffer is
// saturated and it must drop or reject the event.
var ErrAuditBufferFull = &AuditError{Reason: "audit buffer is full"}
