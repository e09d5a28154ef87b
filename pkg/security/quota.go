package security

import (
	"sync/atomic"

	"github.com/synerthink/dotlanth/pkg/opcode"
)

// Quota bounds the resources a single execution may consume. A zero field
// means "unlimited" for that dimension.
type Quota struct {
	MaxMemoryBytes     uint64
	MaxCPUMillis       uint64
	MaxInstructions    uint64
	MaxFileDescriptors uint64
	MaxNetworkBytes    uint64
	MaxStackDepth      uint64
}

// Meter tracks cumulative resource usage against a Quota and implements
// pkg/executor.Meter: every successfully executed instruction charges one
// unit against MaxInstructions, and callers charge the other dimensions
// directly as the relevant events occur (allocation, syscalls, stack
// growth).
type Meter struct {
	quota Quota

	instructions atomic.Uint64
	memoryBytes  atomic.Uint64
	cpuMillis    atomic.Uint64
	fds          atomic.Uint64
	networkBytes atomic.Uint64
	stackDepth   atomic.Uint64
}

// NewMeter returns a meter enforcing quota.
func NewMeter(quota Quota) *Meter {
	return &Meter{quota: quota}
}

// Charge implements pkg/executor.Meter, counting one instruction.
func (m *Meter) Charge(opcode.Kind) error {
	return m.ChargeInstructions(1)
}

// ChargeInstructions adds n to the instruction counter.
func (m *Meter) ChargeInstructions(n uint64) error {
	return checkLimit(&m.instructions, n, m.quota.MaxInstructions, "instructions")
}

// ChargeMemory adds delta bytes to the memory counter.
func (m *Meter) ChargeMemory(delta uint64) error {
	return checkLimit(&m.memoryBytes, delta, m.quota.MaxMemoryBytes, "memory")
}

// ChargeCPU adds millis to the CPU-time counter.
func (m *Meter) ChargeCPU(millis uint64) error {
	return checkLimit(&m.cpuMillis, millis, m.quota.MaxCPUMillis, "cpu_ms")
}

// ChargeFileDescriptor increments the open file descriptor counter.
func (m *Meter) ChargeFileDescriptor() error {
	return checkLimit(&m.fds, 1, m.quota.MaxFileDescriptors, "file_descriptors")
}

// ChargeNetwork adds n bytes to the network I/O counter.
func (m *Meter) ChargeNetwork(n uint64) error {
	return checkLimit(&m.networkBytes, n, m.quota.MaxNetworkBytes, "network_bytes")
}

// SetStackDepth records the current call stack depth, failing if it
// exceeds the quota. Unlike the other dimensions this is a level, not a
// cumulative charge, since stack depth can shrink on return.
func (m *Meter) SetStackDepth(depth uint64) error {
	m.stackDepth.Store(depth)
	if m.quota.MaxStackDepth != 0 && depth > m.quota.MaxStackDepth {
		return &ResourceError{Kind: "stack_depth", Current: depth, Limit: m.quota.MaxStackDepth}
	}
	return nil
}

// checkLimit atomically adds delta to counter and fails if the new total
// exceeds limit (0 meaning unlimited).
func checkLimit(counter *atomic.Uint64, delta, limit uint64, kind string) error {
	total := counter.Add(delta)
	if limit != 0 && total > limit {
		return &ResourceError{Kind: kind, Current: total, Limit: limit}
	}
	return nil
}
