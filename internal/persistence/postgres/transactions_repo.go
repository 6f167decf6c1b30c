package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/persistence"
)

// transactionsRepo implements persistence.TransactionRepo for PostgreSQL.
type transactionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
	metrics *metrics.Registry
}

// NewTransactionsRepo creates the PostgreSQL transaction repository. timeout
// is the hard per-query ceiling; callers on the hot path pass tighter
// deadlines through ctx.
func NewTransactionsRepo(db *sqlx.DB, timeout time.Duration, m *metrics.Registry) persistence.TransactionRepo {
	return &transactionsRepo{db: db, timeout: timeout, metrics: m}
}

func (r *transactionsRepo) observe(op string, start time.Time) {
	r.metrics.PersistenceDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Insert persists a scored record. The row UUID is generated here; the
// database fills created_at.
func (r *transactionsRepo) Insert(ctx context.Context, rec *domain.Record) error {
	defer r.observe("insert_transaction", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec.ID = uuid.New().String()

	query := `
		INSERT INTO transactions (
			id, transaction_id, amount, currency, timestamp,
			customer_id, customer_email, customer_phone, customer_ip,
			card_bin, card_last4, card_brand,
			fraud_score, risk_level, decision
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.TransactionID, rec.Amount, rec.Currency, rec.Timestamp,
		rec.CustomerID, rec.CustomerEmail, rec.CustomerPhone, rec.CustomerIP,
		rec.CardBIN, rec.CardLast4, rec.CardBrand,
		rec.FraudScore, rec.RiskLevel, rec.Decision).
		Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *transactionsRepo) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Record, error) {
	defer r.observe("find_transaction", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, transaction_id, amount, currency, timestamp,
		       customer_id, customer_email, customer_phone, customer_ip,
		       card_bin, card_last4, card_brand,
		       fraud_score, risk_level, decision, created_at
		FROM transactions
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var rec domain.Record
	if err := r.db.GetContext(ctx, &rec, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return &rec, nil
}

func (r *transactionsRepo) CustomerTxCount(ctx context.Context, email string, since time.Time) (int, error) {
	defer r.observe("customer_tx_count", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_email = $1 AND timestamp >= $2`

	var count int
	if err := r.db.QueryRowxContext(ctx, query, email, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count customer transactions: %w", err)
	}
	return count, nil
}

func (r *transactionsRepo) CustomerAmountSum(ctx context.Context, email string, since time.Time) (decimal.Decimal, error) {
	defer r.observe("customer_amount_sum", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE customer_email = $1 AND timestamp >= $2`

	var sum decimal.Decimal
	if err := r.db.QueryRowxContext(ctx, query, email, since).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum customer amounts: %w", err)
	}
	return sum, nil
}

func (r *transactionsRepo) IPTxHistory(ctx context.Context, ip string, since time.Time) ([]persistence.IPEvent, error) {
	defer r.observe("ip_tx_history", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT timestamp
		FROM transactions
		WHERE customer_ip = $1 AND timestamp >= $2
		ORDER BY timestamp DESC`

	var events []persistence.IPEvent
	if err := r.db.SelectContext(ctx, &events, query, ip, since); err != nil {
		return nil, fmt.Errorf("failed to query IP history: %w", err)
	}
	return events, nil
}

func (r *transactionsRepo) RiskLevelCounts(ctx context.Context) (map[domain.RiskLevel]int64, error) {
	defer r.observe("risk_level_counts", time.Now())
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT risk_level, COUNT(*)
		FROM transactions
		GROUP BY risk_level`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by risk level: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskLevel]int64)
	for rows.Next() {
		var level domain.RiskLevel
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan risk level count: %w", err)
		}
		counts[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk level counts: %w", err)
	}
	return counts, nil
}
