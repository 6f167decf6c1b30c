package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/persistence"
)

// authCacheSize bounds the hash-to-record cache. Tenants hold a handful of
// keys each, so a few thousand entries cover any realistic fleet.
const authCacheSize = 4096

// usageUpdateTimeout bounds the detached best-effort usage write.
const usageUpdateTimeout = 5 * time.Second

// Authenticator resolves API key tokens against the persistence gateway,
// caching resolutions briefly so repeated requests avoid a round trip.
type Authenticator struct {
	repo  persistence.APIKeyRepo
	cache *keyCache
	salt  string
}

// NewAuthenticator builds an Authenticator. cacheTTL bounds deactivation lag:
// a revoked key keeps authenticating for at most that long.
func NewAuthenticator(repo persistence.APIKeyRepo, salt string, cacheTTL time.Duration) *Authenticator {
	return &Authenticator{
		repo:  repo,
		cache: newKeyCache(authCacheSize, cacheTTL),
		salt:  salt,
	}
}

// Authenticate resolves a presented token to its key record. A missing,
// unknown, inactive, or expired token yields a *domain.AuthError. On success
// the usage counters are updated asynchronously; a failure there never fails
// the request.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.APIKey, error) {
	if token == "" {
		return nil, &domain.AuthError{Detail: "Missing API key. Include X-API-Key header in your request."}
	}

	hash := HashKey(token, a.salt)
	now := time.Now()

	key, cached := a.cache.get(hash, now)
	if !cached {
		var err error
		key, err = a.repo.FindByHash(ctx, hash)
		if err != nil {
			log.Error().Err(err).Msg("api key lookup failed")
			return nil, &domain.AuthError{Detail: "Invalid API key"}
		}
		if key != nil {
			a.cache.set(hash, key, now)
		}
	}

	if key == nil || !key.CanAuthenticate(now) {
		return nil, &domain.AuthError{Detail: "Invalid API key"}
	}

	a.recordUsage(key.ID)
	return key, nil
}

// recordUsage updates request_count and last_used_at off the request path.
func (a *Authenticator) recordUsage(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), usageUpdateTimeout)
		defer cancel()
		if err := a.repo.IncrementUsage(ctx, id); err != nil {
			log.Warn().Err(err).Str("key_id", id).Msg("api key usage update failed")
		}
	}()
}
