/*
Package security provides the cryptographic services backing Dotlanth's
capability-gated execution kernel: secrets encryption with AES-256-GCM,
a certificate authority (CA) for mutual TLS between the raft peers
backing pkg/mvcc, and certificate lifecycle management. trust.go layers
capability certificates on top of the CA so a dot's CapabilitySet — and
optionally a set of runtime secrets sealed to that dot — can be bound
to a signed, verifiable identity rather than trusted on the executor's
say-so.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                    Security Architecture                    │
	└─────┬───────────────────────┬──────────────────┬────────────┘
	      │                       │                  │
	      ▼                       ▼                  ▼
	┌─────────────┐      ┌────────────────┐   ┌──────────────┐
	│   Secrets   │      │       CA       │   │ Certificate  │
	│ Encryption  │      │  (Root + Sub)  │   │  Management  │
	└─────┬───────┘      └────────┬───────┘   └──────┬───────┘
	      │                       │                   │
	      ▼                       ▼                   ▼
	  AES-256-GCM         RSA 4096-bit          90-day rotation
	  Dot secrets         10-year validity      Automatic renewal

## Cluster Encryption Key

All security is rooted in a 32-byte cluster encryption key, derived from
the cluster ID during initialization:

	clusterKey = SHA-256(clusterID)

This key encrypts the CA's root private key before it reaches storage;
it is held only in memory and must be re-derived (or supplied) on
restart via SetClusterEncryptionKey.

# Secrets Encryption

SecretsManager encrypts and decrypts dot secrets (API keys, credentials
referenced from bytecode) using AES-256 in Galois/Counter Mode, which
provides authenticated encryption - tampering is detected, not just
confidentiality:

	Plaintext → AES-256-GCM(nonce) → [nonce || ciphertext || tag]

Each encryption draws a fresh random 12-byte nonce, so no two secrets
(or re-encryptions of the same secret) ever share one.

EncryptSecretFor/DecryptSecretFor bind the ciphertext to a dotID as
additional authenticated data, so a secret sealed for one dot fails to
decrypt under another dot's ID even though both share the cluster key.
trust.go uses this to embed a dot's sealed secrets directly inside its
capability certificate (IssueCapabilityCertificateWithSecrets) -
UnsealCapabilitySecret recovers them from a verified certificate without
a separate secrets-store lookup.

# Certificate Authority

The CA uses a standard hierarchical PKI: a long-lived, self-signed root
(RSA 4096-bit, 10-year validity) signs shorter-lived raft-peer
certificates (RSA 2048-bit, 90-day validity) used for mutual TLS on
pkg/mvcc's raft transport - see PeerTLSConfig. The root private key is
never persisted in the clear - SaveToStore encrypts it with the cluster
encryption key before handing it to the Store.

# Usage

Creating a secrets manager and round-tripping a secret:

	sm, err := security.NewSecretsManagerFromPassword(clusterPassword)
	if err != nil { ... }

	secret, err := sm.CreateSecret("db-password", []byte("hunter2"))
	if err != nil { ... }

	plaintext, err := sm.GetSecretData(secret)
	if err != nil { ... } // tampering or wrong key

Bootstrapping the CA against a BoltDB-backed Store:

	store, err := storage.NewBoltStore(dataDir)
	if err != nil { ... }
	defer store.Close()

	if err := security.SetClusterEncryptionKey(clusterKey); err != nil { ... }

	ca := security.NewCapabilityAuthority(store)
	if err := ca.LoadFromStore(); err != nil {
		if err := ca.Initialize(); err != nil { ... }
		if err := ca.SaveToStore(); err != nil { ... }
	}

	peerCert, err := ca.IssueRaftPeerCertificate(nodeID, dnsNames, ips)
	if err != nil { ... }
	tlsConfig := ca.PeerTLSConfig(peerCert)

# Threat Model

Protects against network eavesdropping (TLS), impersonation (CA-signed
certs), and secret tampering (authenticated encryption). Does not
protect against a compromised cluster encryption key, a compromised CA
private key, or physical access to a running process's memory - those
require defense in depth (encrypted volumes, TPM-backed boot, RBAC)
outside this package's scope.

# See Also

  - pkg/storage for the encrypted-at-rest backend
  - pkg/opcode and pkg/executor for the capability checks trust.go feeds
*/
package security
