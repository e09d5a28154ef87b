package types

import "time"

// Secret represents one named, encrypted secret as returned by
// pkg/security's SecretsManager.CreateSecret. pkg/storage does not
// persist Secret values.
type Secret struct {
	ID        string
	Name      string
	Data      []byte // Encrypted with AES-256-GCM
	CreatedAt time.Time
	UpdatedAt time.Time
}
