/*
Package storage provides BoltDB-backed persistence for the security
kernel's root CA material.

Dotlanth's CapabilityAuthority (pkg/security) needs its root certificate
and encrypted root key to survive process restarts. BoltStore gives it
a single-bucket, ACID-transactional place to put them, using BoltDB
(bbolt) for embedded storage with no external dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  BoltStore                                                │
	│  - File: <dataDir>/dotlanth.db                            │
	│  - Format: B+tree with MVCC                               │
	│  - Transactions: ACID with fsync                          │
	│                                                            │
	│  Bucket: ca  (fixed key "ca" -> serialized CAData JSON)   │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

The root key itself is always encrypted (pkg/security.Encrypt) before
it reaches SaveCA; BoltStore never sees plaintext key material.

# Usage

	store, err := storage.NewBoltStore(dataDir)
	if err != nil { ... }
	defer store.Close()

	ca := security.NewCapabilityAuthority(store)
	if err := ca.LoadFromStore(); err != nil {
		if err := ca.Initialize(); err != nil { ... }
		if err := ca.SaveToStore(); err != nil { ... }
	}

# See Also

  - pkg/types for the Secret type this layer would also back
  - pkg/security for the CA and secrets logic that drives this package
*/
package storage
