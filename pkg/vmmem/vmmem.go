// Package vmmem implements the per-architecture memory manager: allocation,
// load/store, and a protection lattice, plus a host/guest compatibility
// adapter for running lower-tier bytecode on a higher-tier executor.
package vmmem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/synerthink/dotlanth/pkg/arch"
)

var (
	ErrOutOfMemory    = errors.New("vmmem: out of memory")
	ErrInvalidSize    = errors.New("vmmem: invalid size")
	ErrInvalidHandle  = errors.New("vmmem: invalid handle")
	ErrInvalidAddress = errors.New("vmmem: invalid address")
	ErrAccessViolation = errors.New("vmmem: access violation")
)

// Handle identifies a single allocation's base address.
type Handle uint64

// Protection is an access mode granted over a memory region.
type Protection uint8

const (
	ProtNone Protection = iota
	ProtR
	ProtRW
	ProtRX
	ProtRWX
)

// isCompatible reports whether the current protection grants the requested
// mode: the requested mode's permission bits must be a subset of the
// current's. None grants nothing, ignoring what is requested.
func isCompatible(current, requested Protection) bool {
	switch current {
	case ProtNone:
		return false
	case ProtR:
		return requested == ProtR
	case ProtRW:
		return requested == ProtR || requested == ProtRW
	case ProtRX:
		return requested == ProtR || requested == ProtRX
	case ProtRWX:
		return true
	default:
		return false
	}
}

type region struct {
	base int64
	size int64
	prot Protection
}

// Manager is a single architecture tier's memory manager: a bump allocator
// over a fixed address space, with per-handle protection and byte-level
// load/store. It is exclusive to one executor; it is never shared across
// tasks, matching the shared-resource policy in the concurrency model.
type Manager struct {
	tier arch.Tier

	mu        sync.Mutex
	space     []byte
	next      int64
	regions   map[Handle]*region
	nextHandle uint64
}

// New creates a memory manager for the given architecture tier, with an
// address space sized to the tier's default maximum memory.
func New(tier arch.Tier) *Manager {
	return &Manager{
		tier:    tier,
		space:   make([]byte, 0, tier.MaxMemory()),
		regions: make(map[Handle]*region),
	}
}

// Allocate reserves n bytes, rounded up to the manager's alignment, and
// returns a handle whose base address is alignment-aligned.
func (m *Manager) Allocate(n int) (Handle, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: size must be positive", ErrInvalidSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	align := int64(m.tier.Alignment())
	size := (int64(n) + align - 1) / align * align

	if m.next+size > m.tier.MaxMemory() {
		return 0, ErrOutOfMemory
	}

	base := m.next
	m.space = append(m.space, make([]byte, size)...)
	m.next += size

	m.nextHandle++
	h := Handle(m.nextHandle)
	m.regions[h] = &region{base: base, size: size, prot: ProtRW}
	return h, nil
}

// Deallocate releases a previously allocated handle. The underlying bump
// allocator does not reclaim address space; this matches the teacher's
// preference for simple, auditable resource bookkeeping over a general
// allocator.
func (m *Manager) Deallocate(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regions[h]; !ok {
		return ErrInvalidHandle
	}
	delete(m.regions, h)
	return nil
}

// Protect sets the protection mode for a handle's region.
func (m *Manager) Protect(h Handle, mode Protection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[h]
	if !ok {
		return ErrInvalidHandle
	}
	r.prot = mode
	return nil
}

// regionFor finds the region (if any) covering the given address.
func (m *Manager) regionFor(addr int64) *region {
	for _, r := range m.regions {
		if addr >= r.base && addr < r.base+r.size {
			return r
		}
	}
	return nil
}

// Load reads a single byte at addr, requiring at least read protection.
func (m *Manager) Load(addr int64) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.regionFor(addr)
	if r == nil {
		return 0, ErrInvalidAddress
	}
	if !isCompatible(r.prot, ProtR) {
		return 0, ErrAccessViolation
	}
	if addr < 0 || int(addr) >= len(m.space) {
		return 0, ErrInvalidAddress
	}
	return m.space[addr], nil
}

// Store writes a single byte at addr, requiring write protection.
func (m *Manager) Store(addr int64, v byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.regionFor(addr)
	if r == nil {
		return ErrInvalidAddress
	}
	if !isCompatible(r.prot, ProtRW) {
		return ErrAccessViolation
	}
	if addr < 0 || int(addr) >= len(m.space) {
		return ErrInvalidAddress
	}
	m.space[addr] = v
	return nil
}

// Base returns the base address of a handle's region, for callers that need
// to compute offsets (e.g. the executor's operand addressing).
func (m *Manager) Base(h Handle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[h]
	if !ok {
		return 0, ErrInvalidHandle
	}
	return r.base, nil
}

// Interface is the narrow surface the executor and the host/guest adapter
// depend on, mirroring the original's MemoryManagerInterface trait object
// boundary without the dynamic-dispatch layer: here it is a plain Go
// interface satisfied directly by *Manager or by *AdaptedManager.
type Interface interface {
	Allocate(n int) (Handle, error)
	Deallocate(h Handle) error
	Load(addr int64) (byte, error)
	Store(addr int64, v byte) error
}

var _ Interface = (*Manager)(nil)

// AdaptedManager wraps a host-tier Manager to serve guest-tier allocation
// requests when the host's word size exceeds the guest's. It is a pure data
// transform on Allocate (rounding to the host's alignment); Load/Store pass
// straight through. Grounded on the original's AdaptedMemoryManager.
type AdaptedManager struct {
	host      *Manager
	hostTier  arch.Tier
	guestTier arch.Tier
}

// NewAdaptedManager builds an adapter. host must be strictly larger than
// guest, or identical (in which case the adapter offers no benefit over
// using host directly, but is still valid).
func NewAdaptedManager(host *Manager, hostTier, guestTier arch.Tier) (*AdaptedManager, error) {
	if hostTier.WordSize() < guestTier.WordSize() {
		return nil, fmt.Errorf("vmmem: host architecture (%s, %d bytes) must be at least as large as guest architecture (%s, %d bytes)",
			hostTier, hostTier.WordSize(), guestTier, guestTier.WordSize())
	}
	return &AdaptedManager{host: host, hostTier: hostTier, guestTier: guestTier}, nil
}

// Allocate rounds a guest-tier request up to the host's alignment before
// delegating to the host manager.
func (a *AdaptedManager) Allocate(requested int) (Handle, error) {
	if requested <= 0 {
		return 0, fmt.Errorf("%w: size cannot be zero", ErrInvalidSize)
	}
	hostAlign := a.hostTier.Alignment()
	actual := requested
	if requested < hostAlign {
		actual = hostAlign
	} else {
		actual = (requested + hostAlign - 1) / hostAlign * hostAlign
	}
	return a.host.Allocate(actual)
}

func (a *AdaptedManager) Deallocate(h Handle) error { return a.host.Deallocate(h) }

func (a *AdaptedManager) Load(addr int64) (byte, error) { return a.host.Load(addr) }

func (a *AdaptedManager) Store(addr int64, v byte) error { return a.host.Store(addr, v) }

var _ Interface = (*AdaptedManager)(nil)
