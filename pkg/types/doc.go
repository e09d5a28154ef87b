/*
Package types defines data structures of the security kernel
(pkg/security) that are shared outside it.

Today that is a single type: Secret, the record SecretsManager.CreateSecret
returns, holding an AES-256-GCM ciphertext under a name; the plaintext
never leaves pkg/security. The CapabilityAuthority stores its root-key
material as CAData, not as a Secret.

# Usage

Creating a secret record after encryption:

	secret := &types.Secret{
		ID:   generateSecretID(name),
		Name: name,
		Data: encrypted, // AES-256-GCM ciphertext, nonce-prefixed
	}

# See Also

  - pkg/storage for the BoltDB-backed Store (it persists CA data only)
  - pkg/security for the encryption and CA logic that produces them
*/
package types
