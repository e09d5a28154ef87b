package arch

import "testing"

import "github.com/stretchr/testify/require"

func TestTierOrdering(t *testing.T) {
	require.True(t, Arch32 < Arch64)
	require.True(t, Arch64 < Arch128)
	require.True(t, Arch128 < Arch256)
	require.True(t, Arch256 < Arch512)
}

func TestWordSizes(t *testing.T) {
	cases := map[Tier]int{
		Arch32:  4,
		Arch64:  8,
		Arch128: 16,
		Arch256: 32,
		Arch512: 64,
	}
	for tier, want := range cases {
		require.Equal(t, want, tier.WordSize())
		require.Equal(t, want, tier.Alignment())
	}
}

func TestSupportsSupersetLattice(t *testing.T) {
	require.False(t, Arch64.Supports(FeatureBigInt))
	require.True(t, Arch128.Supports(FeatureBigInt))
	require.True(t, Arch256.Supports(FeatureBigInt))
	require.False(t, Arch128.Supports(FeatureSIMD))
	require.True(t, Arch256.Supports(FeatureSIMD))
	require.True(t, Arch512.Supports(FeatureSIMD))
}

func TestCompatibleWith(t *testing.T) {
	require.True(t, Arch512.CompatibleWith(Arch256))
	require.True(t, Arch256.CompatibleWith(Arch256))
	require.False(t, Arch128.CompatibleWith(Arch256))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(2)
	require.NoError(t, err)
	require.Equal(t, Arch128, tier)

	_, err = ParseTier(200)
	require.ErrorIs(t, err, ErrUnknownTier)
}
