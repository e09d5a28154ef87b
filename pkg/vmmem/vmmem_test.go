package vmmem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/arch"
)

func TestAllocateAlignment(t *testing.T) {
	m := New(arch.Arch64)
	h, err := m.Allocate(3)
	require.NoError(t, err)
	base, err := m.Base(h)
	require.NoError(t, err)
	require.Equal(t, int64(0), base%int64(arch.Arch64.Alignment()))
}

func TestAllocateZeroFails(t *testing.T) {
	m := New(arch.Arch32)
	_, err := m.Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestProtectionCompatibility(t *testing.T) {
	cases := []struct {
		current, requested Protection
		ok                  bool
	}{
		{ProtNone, ProtR, false},
		{ProtR, ProtR, true},
		{ProtR, ProtRW, false},
		{ProtRW, ProtR, true},
		{ProtRW, ProtRW, true},
		{ProtRX, ProtR, true},
		{ProtRX, ProtRX, true},
		{ProtRX, ProtRW, false},
		{ProtRWX, ProtRWX, true},
		{ProtRWX, ProtR, true},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, isCompatible(c.current, c.requested))
	}
}

func TestLoadStoreRequiresProtection(t *testing.T) {
	m := New(arch.Arch64)
	h, err := m.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, m.Protect(h, ProtR))

	base, _ := m.Base(h)
	_, err = m.Load(base)
	require.NoError(t, err)
	err = m.Store(base, 1)
	require.ErrorIs(t, err, ErrAccessViolation)

	require.NoError(t, m.Protect(h, ProtRW))
	require.NoError(t, m.Store(base, 42))
	v, err := m.Load(base)
	require.NoError(t, err)
	require.Equal(t, byte(42), v)
}

func TestInvalidHandleOperations(t *testing.T) {
	m := New(arch.Arch32)
	err := m.Deallocate(Handle(0xDEADBEEF))
	require.ErrorIs(t, err, ErrInvalidHandle)
	err = m.Protect(Handle(0xDEADBEEF), ProtRW)
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestAdaptedManagerRoundsToHostAlignment(t *testing.T) {
	host := New(arch.Arch64) // alignment 8
	adapted, err := NewAdaptedManager(host, arch.Arch64, arch.Arch32)
	require.NoError(t, err)

	h, err := adapted.Allocate(4)
	require.NoError(t, err)
	base, err := host.Base(h)
	require.NoError(t, err)
	require.Equal(t, int64(0), base%8)

	require.NoError(t, adapted.Deallocate(h))
}

func TestAdaptedManagerRejectsSmallerHost(t *testing.T) {
	host := New(arch.Arch32)
	_, err := NewAdaptedManager(host, arch.Arch32, arch.Arch64)
	require.Error(t, err)
}

func TestAdaptedManagerZeroSizeFails(t *testing.T) {
	host := New(arch.Arch64)
	adapted, err := NewAdaptedManager(host, arch.Arch64, arch.Arch32)
	require.NoError(t, err)
	_, err = adapted.Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)
}
