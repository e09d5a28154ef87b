package security

import (
	"time"

	"github.com/synerthink/dotlanth/internal/metrics"
	"github.com/synerthink/dotlanth/pkg/opcode"
)

// Capability grants a dot permission to execute one opcode kind, optionally
// narrowed by string conditions (e.g. "key_prefix=orders/") and bounded by
// an expiry. Grounded on original_source's crates/dotvm/core/src/security/
// errors.rs's CapabilityDenied/CapabilityNotFound/CapabilityExpired variants,
// which this package's errors mirror.
type Capability struct {
	OpcodeKind opcode.Kind
	Conditions map[string]string
	ExpiresAt  time.Time
}

// expired reports whether the capability's expiry has passed. A zero
// ExpiresAt means the capability never expires.
func (c Capability) expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// matches reports whether c's conditions are a subset of ctx — every
// condition c names must be present in ctx with an equal value.
func (c Capability) matches(ctx map[string]string) bool {
	for k, v := range c.Conditions {
		if ctx[k] != v {
			return false
		}
	}
	return true
}

// CapabilitySet is the full grant held by one dot: a list of capabilities,
// checked in order. It implements pkg/executor.Gate.
type CapabilitySet struct {
	DotID        string
	Capabilities []Capability
}

// Allow implements pkg/executor.Gate: the opcode is authorized if any
// held, unexpired capability names it. Condition matching is delegated to
// CheckWithContext for callers that need it; Allow alone treats an empty
// condition set as an unconditional grant.
func (cs CapabilitySet) Allow(k opcode.Kind) error {
	return cs.CheckWithContext(k, nil)
}

// CheckWithContext authorizes k against ctx (e.g. the state key a
// StateWrite targets), returning a SecurityError on denial.
func (cs CapabilitySet) CheckWithContext(k opcode.Kind, ctx map[string]string) error {
	now := time.Now()
	found := false
	for _, grant := range cs.Capabilities {
		if grant.OpcodeKind != k {
			continue
		}
		found = true
		if grant.expired(now) {
			continue
		}
		if grant.matches(ctx) {
			return nil
		}
	}
	metrics.CapabilityDeniedTotal.Inc()
	if !found {
		return &CapabilityNotFoundError{OpcodeKind: k}
	}
	return &CapabilityDeniedError{OpcodeKind: k, Reason: "no unexpired capability matches the request context"}
}
