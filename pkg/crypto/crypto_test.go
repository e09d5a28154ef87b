package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	a := HashSHA256([]byte("hello"))
	b := HashSHA256([]byte("hello"))
	require.Equal(t, a, b)

	k1 := Keccak256([]byte("hello"))
	k2 := Keccak256([]byte("hello"))
	require.Equal(t, k1, k2)
	require.NotEqual(t, a, k1)

	bl1 := HashBlake3([]byte("hello"))
	require.NotEqual(t, a, bl1)
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	msg := []byte("dot payload")
	sig := SignEd25519(priv, msg)
	require.True(t, VerifyEd25519(pub, msg, sig))
	require.False(t, VerifyEd25519(pub, []byte("tampered"), sig))
}

func TestSecp256k1RoundTrip(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	digest := HashSHA256([]byte("dot payload"))
	sig := SignSecp256k1(priv, digest)
	ok, err := VerifySecp256k1(priv.PubKey(), digest, sig)
	require.NoError(t, err)
	require.True(t, ok)

	other := HashSHA256([]byte("tampered"))
	ok, err = VerifySecp256k1(priv.PubKey(), other, sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAESGCMRoundTrip(t *testing.T) {
	key, err := SecureRandom(32)
	require.NoError(t, err)
	ct, err := EncryptAESGCM(key, []byte("secret"))
	require.NoError(t, err)
	pt, err := DecryptAESGCM(key, ct)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), pt)

	_, err = DecryptAESGCM(key, append([]byte{}, ct[:len(ct)-1]...))
	require.Error(t, err)
}

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	key, err := SecureRandom(32)
	require.NoError(t, err)
	ct, err := EncryptChaCha20Poly1305(key, []byte("secret"))
	require.NoError(t, err)
	pt, err := DecryptChaCha20Poly1305(key, ct)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), pt)
}

func TestZkNotImplemented(t *testing.T) {
	_, err := ZkProof([]byte("x"))
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	_, err = ZkVerify(nil, nil)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
