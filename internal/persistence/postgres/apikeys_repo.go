package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/persistence"
)

// apiKeysRepo implements persistence.APIKeyRepo for PostgreSQL.
type apiKeysRepo struct {
	db      *sqlx.DB
	timeout time.Duration
	metrics *metrics.Registry
}

// NewAPIKeysRepo creates the PostgreSQL API key repository.
func NewAPIKeysRepo(db *sqlx.DB, timeout time.Duration, m *metrics.Registry) persistence.APIKeyRepo {
	return &apiKeysRepo{db: db, timeout: timeout, metrics: m}
}

// FindByHash resolves a key hash. The active-and-unexpired filter lives in
// the query so revoked keys never reach the auth cache.
func (r *apiKeysRepo) FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	defer func(start time.Time) {
		r.metrics.PersistenceDuration.WithLabelValues("find_api_key").Observe(time.Since(start).Seconds())
	}(time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, key_hash, name, tenant_id, rate_limit, is_active,
		       request_count, last_used_at, expires_at, created_at
		FROM api_keys
		WHERE key_hash = $1
		  AND is_active = TRUE
		  AND (expires_at IS NULL OR expires_at > NOW())`

	var key domain.APIKey
	if err := r.db.GetContext(ctx, &key, query, keyHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}
	return &key, nil
}

// IncrementUsage bumps request_count and refreshes last_used_at.
func (r *apiKeysRepo) IncrementUsage(ctx context.Context, id string) error {
	defer func(start time.Time) {
		r.metrics.PersistenceDuration.WithLabelValues("increment_api_key_usage").Observe(time.Since(start).Seconds())
	}(time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE api_keys
		SET request_count = request_count + 1, last_used_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment api key usage: %w", err)
	}
	return nil
}
