package scoring

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygsom/fraudscore/internal/cache"
	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/features"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/model"
	"github.com/dygsom/fraudscore/internal/persistence"
	"github.com/dygsom/fraudscore/internal/velocity"
)

type captureRepo struct {
	mu        sync.Mutex
	inserted  *domain.Record
	insertErr error
}

func (r *captureRepo) Insert(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	rec.CreatedAt = time.Now()
	r.inserted = rec
	return nil
}

func (r *captureRepo) FindByTransactionID(context.Context, string) (*domain.Record, error) {
	return nil, nil
}

func (r *captureRepo) CustomerTxCount(context.Context, string, time.Time) (int, error) {
	return 0, nil
}

func (r *captureRepo) CustomerAmountSum(context.Context, string, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *captureRepo) IPTxHistory(context.Context, string, time.Time) ([]persistence.IPEvent, error) {
	return nil, nil
}

func (r *captureRepo) RiskLevelCounts(context.Context) (map[domain.RiskLevel]int64, error) {
	return nil, nil
}

func newOrchestrator(t *testing.T, repo persistence.TransactionRepo) *Orchestrator {
	t.Helper()
	rdb, _ := redismock.NewClientMock()
	m := metrics.NewRegistry(prometheus.NewRegistry())
	tiered := cache.New(rdb, 10, m)
	extractor := features.NewExtractor()
	mgr := model.NewManager(filepath.Join(t.TempDir(), "absent.json"), extractor.Count())
	agg := velocity.New(tiered, repo, time.Minute, 50*time.Millisecond)
	return New(agg, extractor, mgr, repo, domain.DefaultThresholds(), m)
}

func scoreInput() *domain.Transaction {
	tx := &domain.Transaction{
		TransactionID: "TXN-SCORE-001",
		Amount:        decimal.NewFromFloat(150.50),
		Currency:      "PEN",
		Timestamp:     time.Date(2025, 6, 17, 11, 0, 0, 0, time.UTC),
		Customer: domain.Customer{
			Email:     "customer@gmail.com",
			IPAddress: "190.42.15.8",
		},
		PaymentMethod: domain.PaymentMethod{
			Type: "credit_card", BIN: "411111", Last4: "1234", Brand: "Visa",
		},
	}
	return tx
}

func TestScorePersistsBeforeResponding(t *testing.T) {
	repo := &captureRepo{}
	o := newOrchestrator(t, repo)

	result, err := o.Score(context.Background(), scoreInput())
	require.NoError(t, err)

	require.NotNil(t, repo.inserted)
	assert.Equal(t, result.TransactionID, repo.inserted.TransactionID)
	assert.Equal(t, result.FraudScore, repo.inserted.FraudScore)
	assert.Equal(t, result.RiskLevel, repo.inserted.RiskLevel)
	assert.Equal(t, result.Recommendation, repo.inserted.Decision)
}

func TestScoreCleanTransactionApproves(t *testing.T) {
	o := newOrchestrator(t, &captureRepo{})

	result, err := o.Score(context.Background(), scoreInput())
	require.NoError(t, err)

	assert.Equal(t, "TXN-SCORE-001", result.TransactionID)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)
	assert.Equal(t, domain.RecommendApprove, result.Recommendation)
	assert.Equal(t, 0.0, result.FraudScore)
	assert.Equal(t, 150.5, result.Details.Amount)
	assert.Equal(t, "customer@gmail.com", result.Details.CustomerEmail)
}

func TestScoreRiskySignalsDecline(t *testing.T) {
	o := newOrchestrator(t, &captureRepo{})

	tx := scoreInput()
	tx.Amount = decimal.NewFromFloat(7500.25)
	tx.Customer.Email = "x@tempmail.com"
	tx.Timestamp = time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC) // Sunday night

	result, err := o.Score(context.Background(), tx)
	require.NoError(t, err)

	// 30 very high value + 25 disposable + 10 night + 5 weekend = 0.70
	assert.Equal(t, 0.70, result.FraudScore)
	assert.Equal(t, domain.RiskHigh, result.RiskLevel)
	assert.Equal(t, domain.RecommendDecline, result.Recommendation)
}

func TestScoreInsertFailureIsPersistenceError(t *testing.T) {
	repo := &captureRepo{insertErr: errors.New("connection reset")}
	o := newOrchestrator(t, repo)

	result, err := o.Score(context.Background(), scoreInput())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceWrite)
}

func TestScoreIncludesVelocitySnapshot(t *testing.T) {
	repo := &velocityRepo{count24h: 7}
	o := newOrchestrator(t, repo)

	result, err := o.Score(context.Background(), scoreInput())
	require.NoError(t, err)
	assert.Equal(t, 7, result.Details.VelocityChecks.CustomerTxCount24h)
	// 24h count above 5 adds 10 fallback points.
	assert.Equal(t, 0.10, result.FraudScore)
}

// velocityRepo answers velocity queries with fixed counts.
type velocityRepo struct {
	captureRepo
	count24h int
}

func (r *velocityRepo) CustomerTxCount(_ context.Context, _ string, since time.Time) (int, error) {
	if time.Since(since) > 2*time.Hour {
		return r.count24h, nil
	}
	return 0, nil
}
