package keys

import (
	"time"
)

// ActivationKey is the stored mirror of an issued key. The key string itself
// is the authority on validity and deployment state; the row exists so
// operators can list what was issued and so toggles can locate the latest
// key string. Whenever a toggle re-issues the key, the row is rewritten with
// the new string.
type ActivationKey struct {
	ID            string
	Key           string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	AgentDeployed bool
	UpdatedAt     time.Time
}
