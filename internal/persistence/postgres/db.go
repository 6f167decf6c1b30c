// Package postgres implements the persistence gateway on PostgreSQL via
// sqlx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/metrics"
)

// PoolConfig tunes the shared connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the database, applies pool limits, and verifies
// connectivity.
func Connect(ctx context.Context, url string, cfg PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("database pool ready")
	return db, nil
}

// Pinger adapts the pool to the readiness-probe interface.
type Pinger struct {
	db *sqlx.DB
}

// NewPinger wraps db for readiness probes.
func NewPinger(db *sqlx.DB) *Pinger {
	return &Pinger{db: db}
}

// Ping verifies database connectivity.
func (p *Pinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// WatchPool samples pool usage into the metrics gauges until ctx is done.
// The high-water gauge keeps the largest in-use count observed.
func WatchPool(ctx context.Context, db *sqlx.DB, m *metrics.Registry) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	highWater := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			inUse := db.Stats().InUse
			m.DBPoolInUse.Set(float64(inUse))
			if inUse > highWater {
				highWater = inUse
				m.DBPoolHighWater.Set(float64(highWater))
			}
		}
	}
}
