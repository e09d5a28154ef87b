package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/opcode"
)

func TestMeterChargeCountsInstructions(t *testing.T) {
	m := NewMeter(Quota{MaxInstructions: 3})
	assert.NoError(t, m.Charge(opcode.Add))
	assert.NoError(t, m.Charge(opcode.Add))
	assert.NoError(t, m.Charge(opcode.Add))

	err := m.Charge(opcode.Add)
	require.Error(t, err)
	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "instructions", resErr.Kind)
}

func TestMeterZeroQuotaMeansUnlimited(t *testing.T) {
	m := NewMeter(Quota{})
	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Charge(opcode.Add))
	}
}

func TestMeterChargeMemoryEnforcesLimit(t *testing.T) {
	m := NewMeter(Quota{MaxMemoryBytes: 100})
	assert.NoError(t, m.ChargeMemory(60))
	err := m.ChargeMemory(60)
	require.Error(t, err)
	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, uint64(120), resErr.Current)
	assert.Equal(t, uint64(100), resErr.Limit)
}

func TestMeterSetStackDepthIsALevelNotACharge(t *testing.T) {
	m := NewMeter(Quota{MaxStackDepth: 10})
	assert.NoError(t, m.SetStackDepth(5))
	assert.NoError(t, m.SetStackDepth(10))
	assert.NoError(t, m.SetStackDepth(3))

	err := m.SetStackDepth(11)
	require.Error(t, err)
}

func TestMeterIndependentDimensions(t *testing.T) {
	m := NewMeter(Quota{MaxCPUMillis: 50, MaxFileDescriptors: 2, MaxNetworkBytes: 10})
	assert.NoError(t, m.ChargeCPU(50))
	err := m.ChargeCPU(1)
	assert.Error(t, err)

	assert.NoError(t, m.ChargeFileDescriptor())
	assert.NoError(t, m.ChargeFileDescriptor())
	assert.Error(t, m.ChargeFileDescriptor())

	assert.NoError(t, m.ChargeNetwork(10))
	assert.Error(t, m.ChargeNetwork(1))
}
