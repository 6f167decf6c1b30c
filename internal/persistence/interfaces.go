// Package persistence defines the typed gateway the core uses to reach
// durable state. The gateway exclusively owns that state; callers never see
// SQL or rows.
package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dygsom/fraudscore/internal/domain"
)

// IPEvent is the slice of a transaction row the velocity aggregator needs
// from IP history.
type IPEvent struct {
	Timestamp time.Time `db:"timestamp"`
}

// TransactionRepo stores and queries scored transaction records.
type TransactionRepo interface {
	// Insert persists a record, filling ID and CreatedAt. Records are
	// immutable after insert.
	Insert(ctx context.Context, rec *domain.Record) error

	// FindByTransactionID looks up a record by its business identifier.
	// Returns (nil, nil) when absent.
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Record, error)

	// CustomerTxCount counts a customer's transactions since the cutoff.
	CustomerTxCount(ctx context.Context, email string, since time.Time) (int, error)

	// CustomerAmountSum totals a customer's transaction amounts since the
	// cutoff.
	CustomerAmountSum(ctx context.Context, email string, since time.Time) (decimal.Decimal, error)

	// IPTxHistory returns the timestamps of transactions from an IP since
	// the cutoff, newest first.
	IPTxHistory(ctx context.Context, ip string, since time.Time) ([]IPEvent, error)

	// RiskLevelCounts groups stored transactions by risk level.
	RiskLevelCounts(ctx context.Context) (map[domain.RiskLevel]int64, error)
}

// APIKeyRepo resolves and maintains API key records.
type APIKeyRepo interface {
	// FindByHash resolves a salted key hash to an active, unexpired key.
	// The active-and-unexpired filter is applied in the store query.
	// Returns (nil, nil) when no such key exists.
	FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)

	// IncrementUsage bumps request_count and refreshes last_used_at.
	// Best-effort; never on the critical path.
	IncrementUsage(ctx context.Context, id string) error
}

// Pinger exposes a liveness check for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}
