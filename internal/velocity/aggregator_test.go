package velocity

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/persistence"
)

type fakeTxRepo struct {
	mu        sync.Mutex
	countErr  error
	amountErr error
	ipErr     error
	calls     int

	events []persistence.IPEvent
}

func (f *fakeTxRepo) Insert(context.Context, *domain.Record) error { return nil }

func (f *fakeTxRepo) FindByTransactionID(context.Context, string) (*domain.Record, error) {
	return nil, nil
}

func (f *fakeTxRepo) CustomerTxCount(_ context.Context, _ string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	// The 1h cutoff is much closer to now than the 24h cutoff.
	if time.Since(since) < 2*time.Hour {
		return 3, nil
	}
	return 12, nil
}

func (f *fakeTxRepo) CustomerAmountSum(context.Context, string, time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.amountErr != nil {
		return decimal.Zero, f.amountErr
	}
	return decimal.NewFromFloat(4500.75), nil
}

func (f *fakeTxRepo) IPTxHistory(context.Context, string, time.Time) ([]persistence.IPEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.ipErr != nil {
		return nil, f.ipErr
	}
	return f.events, nil
}

func (f *fakeTxRepo) RiskLevelCounts(context.Context) (map[domain.RiskLevel]int64, error) {
	return nil, nil
}

func (f *fakeTxRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// missCache builds a two-tier cache whose Redis side always errors, so every
// lookup is a miss and every write is a no-op.
func missCache() *cache.TwoTier {
	rdb, _ := redismock.NewClientMock()
	return cache.New(rdb, 10, metrics.NewRegistry(prometheus.NewRegistry()))
}

func TestSnapshotComputesFromRepo(t *testing.T) {
	now := time.Now()
	repo := &fakeTxRepo{events: []persistence.IPEvent{
		{Timestamp: now.Add(-10 * time.Minute)},
		{Timestamp: now.Add(-40 * time.Minute)},
		{Timestamp: now.Add(-5 * time.Hour)},
	}}
	a := New(missCache(), repo, time.Minute, 50*time.Millisecond)

	snap := a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")

	assert.Equal(t, 3, snap.CustomerTxCount1h)
	assert.Equal(t, 12, snap.CustomerTxCount24h)
	assert.Equal(t, 4500.75, snap.CustomerAmount24h)
	assert.Equal(t, 2, snap.IPTxCount1h)
	assert.Equal(t, 3, snap.IPTxCount24h)
}

func TestSnapshotPartialFailureZeroesField(t *testing.T) {
	repo := &fakeTxRepo{amountErr: errors.New("timeout")}
	a := New(missCache(), repo, time.Minute, 50*time.Millisecond)

	snap := a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")

	assert.Equal(t, 0.0, snap.CustomerAmount24h)
	assert.Equal(t, 3, snap.CustomerTxCount1h, "other sub-queries still populate")
}

func TestSnapshotAllFailuresYieldEmpty(t *testing.T) {
	boom := errors.New("db down")
	repo := &fakeTxRepo{countErr: boom, amountErr: boom, ipErr: boom}
	a := New(missCache(), repo, time.Minute, 50*time.Millisecond)

	snap := a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")
	assert.Equal(t, domain.VelocitySnapshot{}, snap)
}

func TestSnapshotBreakerOpensAfterRepeatedFailures(t *testing.T) {
	boom := errors.New("db down")
	repo := &fakeTxRepo{countErr: boom, amountErr: boom, ipErr: boom}
	a := New(missCache(), repo, time.Minute, 50*time.Millisecond)

	for i := 0; i < 6; i++ {
		a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")
	}
	before := repo.callCount()

	// Breaker is open: no further repo traffic.
	a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")
	assert.Equal(t, before, repo.callCount())
}

func TestSnapshotServedFromCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := cache.New(rdb, 10, metrics.NewRegistry(prometheus.NewRegistry()))

	cached := domain.VelocitySnapshot{CustomerTxCount24h: 42}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.Regexp().ExpectGet(`velocity:a@b\.com:\d+`).SetVal(string(data))
	mock.Regexp().ExpectTTL(`velocity:a@b\.com:\d+`).SetVal(30 * time.Second)

	repo := &fakeTxRepo{countErr: errors.New("must not be called")}
	a := New(c, repo, time.Minute, 50*time.Millisecond)

	snap := a.Snapshot(context.Background(), "a@b.com", "1.2.3.4")
	assert.Equal(t, 42, snap.CustomerTxCount24h)
	assert.Equal(t, 0, repo.callCount())
}
