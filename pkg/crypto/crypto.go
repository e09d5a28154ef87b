// Package crypto implements the Crypto opcode family: hashing, signing,
// symmetric encryption, secure randomness, and zero-knowledge proof hooks.
// Algorithm selection follows the teacher's preference for stdlib crypto
// where the stdlib already covers a primitive (AES-GCM, Ed25519), and
// ecosystem libraries mined from the rest of the example pack where it
// doesn't (keccak/blake3/secp256k1/chacha20poly1305) — see DESIGN.md.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	ErrUnsupportedAlgorithm = errors.New("crypto: unsupported algorithm")
	ErrInvalidKey           = errors.New("crypto: invalid key")
	ErrInvalidSignature     = errors.New("crypto: invalid signature")
	ErrDecryptionFailed     = errors.New("crypto: decryption failed")
)

// HashSHA256 returns the SHA-256 digest of data.
func HashSHA256(data []byte) [32]byte { return sha256.Sum256(data) }

// HashBlake3 returns the 32-byte Blake3 digest of data.
func HashBlake3(data []byte) [32]byte { return blake3.Sum256(data) }

// Keccak256 returns the Keccak-256 digest of data, used by pkg/mpt for
// content-addressed node identity.
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SignEd25519 signs msg with a 64-byte Ed25519 private key.
func SignEd25519(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// VerifyEd25519 verifies an Ed25519 signature.
func VerifyEd25519(pub ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(pub, msg, sig)
}

// SignSecp256k1 signs the digest with an ECDSA secp256k1 private key,
// returning a DER-encoded signature.
func SignSecp256k1(priv *secp256k1.PrivateKey, digest [32]byte) []byte {
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize()
}

// VerifySecp256k1 verifies a DER-encoded ECDSA secp256k1 signature.
func VerifySecp256k1(pub *secp256k1.PublicKey, digest [32]byte, sig []byte) (bool, error) {
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return s.Verify(digest[:], pub), nil
}

// EncryptAESGCM encrypts plaintext with AES-256-GCM, prepending the
// randomly generated nonce to the ciphertext. Grounded on the teacher's
// pkg/security/secrets.go nonce-prepended-ciphertext convention.
func EncryptAESGCM(key, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: AES-256-GCM requires a 32-byte key", ErrInvalidKey)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptAESGCM reverses EncryptAESGCM.
func DecryptAESGCM(key, data []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: AES-256-GCM requires a 32-byte key", ErrInvalidKey)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return pt, nil
}

// EncryptChaCha20Poly1305 encrypts plaintext, prepending the nonce, mirroring
// EncryptAESGCM's wire shape so callers can select either cipher uniformly.
func EncryptChaCha20Poly1305(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptChaCha20Poly1305 reverses EncryptChaCha20Poly1305.
func DecryptChaCha20Poly1305(key, data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(data) < aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return pt, nil
}

// SecureRandom returns n cryptographically random bytes.
func SecureRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ZkProof and ZkVerify are not implemented: no Go ecosystem equivalent of a
// Plonky2-style recursive STARK/SNARK prover was reachable from the example
// pack (see DESIGN.md, "ZK proving"). Callers receive a structural error
// rather than a silent no-op.
func ZkProof(_ []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: ZkProof (Plonky2)", ErrUnsupportedAlgorithm)
}

func ZkVerify(_, _ []byte) (bool, error) {
	return false, fmt.Errorf("%w: ZkVerify (Plonky2)", ErrUnsupportedAlgorithm)
}
