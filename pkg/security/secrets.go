package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/synerthink/dotlanth/pkg/types"
)

// SecretsManager wraps one AES-256-GCM key and encrypts/decrypts both the
// capability authority's root-key material (see ca.go's SaveToStore /
// LoadFromStore) and dot-scoped secrets sealed into a capability
// certificate (see trust.go's IssueCapabilityCertificateWithSecrets). A
// single instance, built from the cluster's encryption key, backs both
// call sites via the package-level Encrypt/Decrypt/EncryptSecretFor/
// DecryptSecretFor functions below.
type SecretsManager struct {
	encryptionKey []byte // 32 bytes for AES-256
}

// NewSecretsManager creates a new secrets manager with the given encryption key
// The key should be 32 bytes for AES-256-GCM
func NewSecretsManager(key []byte) (*SecretsManager, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d", len(key))
	}

	return &SecretsManager{
		encryptionKey: key,
	}, nil
}

// NewSecretsManagerFromPassword creates a secrets manager using a password
// The password is hashed with SHA-256 to derive the encryption key
func NewSecretsManagerFromPassword(password string) (*SecretsManager, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	// Derive 32-byte key from password using SHA-256
	hash := sha256.Sum256([]byte(password))
	return NewSecretsManager(hash[:])
}

// EncryptSecret encrypts plaintext data using AES-256-GCM
// Returns encrypted data with nonce prepended
func (sm *SecretsManager) EncryptSecret(plaintext []byte) ([]byte, error) {
	return sm.seal(plaintext, nil)
}

// DecryptSecret decrypts data encrypted with EncryptSecret
// Expects nonce to be prepended to ciphertext
func (sm *SecretsManager) DecryptSecret(ciphertext []byte) ([]byte, error) {
	return sm.open(ciphertext, nil)
}

// EncryptSecretFor seals plaintext for dotID, binding dotID as AES-GCM
// additional authenticated data: the resulting ciphertext only decrypts
// under the same dotID, so a sealed secret meant for one dot's capability
// certificate cannot be replayed into another dot's grant even though
// every dot's secrets share the cluster-wide key.
func (sm *SecretsManager) EncryptSecretFor(dotID string, plaintext []byte) ([]byte, error) {
	return sm.seal(plaintext, []byte(dotID))
}

// DecryptSecretFor reverses EncryptSecretFor, failing if ciphertext was not
// sealed for dotID.
func (sm *SecretsManager) DecryptSecretFor(dotID string, ciphertext []byte) ([]byte, error) {
	return sm.open(ciphertext, []byte(dotID))
}

func (sm *SecretsManager) seal(plaintext, aad []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("cannot encrypt empty data")
	}

	gcm, err := sm.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func (sm *SecretsManager) open(ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("cannot decrypt empty data")
	}

	gcm, err := sm.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func (sm *SecretsManager) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sm.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// CreateSecret creates a new encrypted secret
func (sm *SecretsManager) CreateSecret(name string, plaintext []byte) (*types.Secret, error) {
	if name == "" {
		return nil, fmt.Errorf("secret name cannot be empty")
	}

	encrypted, err := sm.EncryptSecret(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	return &types.Secret{
		ID:   generateSecretID(name),
		Name: name,
		Data: encrypted,
	}, nil
}

// GetSecretData decrypts and returns the plaintext data from a secret
func (sm *SecretsManager) GetSecretData(secret *types.Secret) ([]byte, error) {
	if secret == nil {
		return nil, fmt.Errorf("secret cannot be nil")
	}

	return sm.DecryptSecret(secret.Data)
}

// generateSecretID generates a unique ID for a secret based on its name
func generateSecretID(name string) string {
	hash := sha256.Sum256([]byte(name))
	return base64.URLEncoding.EncodeToString(hash[:16])
}

// DeriveKeyFromClusterID derives an encryption key from the cluster ID
// This is used during cluster initialization to create a consistent key
func DeriveKeyFromClusterID(clusterID string) []byte {
	hash := sha256.Sum256([]byte(clusterID))
	return hash[:]
}

var (
	clusterSecretsMu sync.RWMutex
	clusterSecrets   *SecretsManager
)

// SetClusterEncryptionKey installs the cluster-wide SecretsManager used by
// Encrypt/Decrypt (root CA key storage, ca.go) and EncryptSecretFor/
// DecryptSecretFor (capability-bound dot secrets, trust.go). Must be
// called once during cluster initialization before either call site runs.
func SetClusterEncryptionKey(key []byte) error {
	sm, err := NewSecretsManager(key)
	if err != nil {
		return err
	}
	clusterSecretsMu.Lock()
	clusterSecrets = sm
	clusterSecretsMu.Unlock()
	return nil
}

func clusterManager() (*SecretsManager, error) {
	clusterSecretsMu.RLock()
	defer clusterSecretsMu.RUnlock()
	if clusterSecrets == nil {
		return nil, fmt.Errorf("cluster encryption key not set")
	}
	return clusterSecrets, nil
}

// Encrypt encrypts data using the cluster encryption key
// This is used for encrypting sensitive data like CA private keys
func Encrypt(plaintext []byte) ([]byte, error) {
	sm, err := clusterManager()
	if err != nil {
		return nil, err
	}
	return sm.EncryptSecret(plaintext)
}

// Decrypt decrypts data using the cluster encryption key
// This is used for decrypting sensitive data like CA private keys
func Decrypt(ciphertext []byte) ([]byte, error) {
	sm, err := clusterManager()
	if err != nil {
		return nil, err
	}
	return sm.DecryptSecret(ciphertext)
}

// sealDotSecrets encrypts every value in plaintexts for dotID using the
// cluster-wide SecretsManager, for embedding into a capability
// certificate's grant (trust.go).
func sealDotSecrets(dotID string, plaintexts map[string][]byte) (map[string][]byte, error) {
	if len(plaintexts) == 0 {
		return nil, nil
	}
	sm, err := clusterManager()
	if err != nil {
		return nil, err
	}
	sealed := make(map[string][]byte, len(plaintexts))
	for name, pt := range plaintexts {
		ct, err := sm.EncryptSecretFor(dotID, pt)
		if err != nil {
			return nil, fmt.Errorf("sealing secret %q: %w", name, err)
		}
		sealed[name] = ct
	}
	return sealed, nil
}

// unsealDotSecret decrypts one named secret sealed by sealDotSecrets.
func unsealDotSecret(dotID string, sealed []byte) ([]byte, error) {
	sm, err := clusterManager()
	if err != nil {
		return nil, err
	}
	return sm.DecryptSecretFor(dotID, sealed)
}
