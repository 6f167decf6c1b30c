package domain

import "time"

// APIKey is the stored record for an opaque client token. Only the salted
// SHA-256 hash of the token is persisted.
type APIKey struct {
	ID           string     `db:"id"`
	KeyHash      string     `db:"key_hash"`
	Name         string     `db:"name"`
	TenantID     string     `db:"tenant_id"`
	RateLimit    int        `db:"rate_limit"`
	IsActive     bool       `db:"is_active"`
	RequestCount int64      `db:"request_count"`
	LastUsedAt   *time.Time `db:"last_used_at"`
	ExpiresAt    *time.Time `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// CanAuthenticate reports whether the key authenticates a request at the
// given instant: it must be active and either non-expiring or not yet expired.
func (k *APIKey) CanAuthenticate(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	return k.ExpiresAt == nil || k.ExpiresAt.After(now)
}
