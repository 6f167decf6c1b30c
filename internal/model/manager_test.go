package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/features"
)

// writeModel writes an ensemble JSON file and returns its path.
func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func extractorVector(t *testing.T, mutate func(*domain.Transaction), vel domain.VelocitySnapshot) features.Vector {
	t.Helper()
	tx := &domain.Transaction{
		TransactionID: "TXN-MODEL-001",
		Amount:        decimal.NewFromFloat(150.50),
		Currency:      "PEN",
		Timestamp:     time.Date(2025, 6, 17, 11, 0, 0, 0, time.UTC), // Tuesday morning
		Customer: domain.Customer{
			Email:     "customer@gmail.com",
			IPAddress: "190.42.15.8",
		},
		PaymentMethod: domain.PaymentMethod{
			Type: "credit_card", BIN: "411111", Last4: "1234", Brand: "Visa",
		},
	}
	if mutate != nil {
		mutate(tx)
	}
	return features.NewExtractor().Extract(tx, vel)
}

func TestLoadEnsembleValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{broken"},
		{"feature count mismatch", `{"version":"1","n_features":5,"base_score":0,"trees":[{"nodes":[{"is_leaf":true,"leaf":0.1}]}]}`},
		{"no trees", `{"version":"1","n_features":41,"base_score":0,"trees":[]}`},
		{"feature index out of range", `{"version":"1","n_features":41,"base_score":0,"trees":[{"nodes":[{"feature":41,"threshold":1,"left":1,"right":2},{"is_leaf":true,"leaf":0},{"is_leaf":true,"leaf":0}]}]}`},
		{"child index out of range", `{"version":"1","n_features":41,"base_score":0,"trees":[{"nodes":[{"feature":0,"threshold":1,"left":5,"right":1},{"is_leaf":true,"leaf":0}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEnsemble(writeModel(t, tt.content), 41)
			assert.Error(t, err)
		})
	}
}

func TestManagerMissingModelUsesFallback(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.json"), 41)

	assert.False(t, m.Loaded())
	assert.Equal(t, "fallback-rules", m.Version())

	pred := m.Predict(extractorVector(t, nil, domain.VelocitySnapshot{}))
	assert.False(t, pred.ModelUsed)
	assert.Equal(t, ConfidenceLow, pred.Confidence)
}

func TestManagerLoadedModelPredicts(t *testing.T) {
	// Single stump on hour_of_day (feature 0): before noon 2.0 margin,
	// otherwise -2.0.
	content := `{"version":"2025.06","n_features":41,"base_score":0,"trees":[{"nodes":[
		{"feature":0,"threshold":12,"left":1,"right":2},
		{"is_leaf":true,"leaf":2.0},
		{"is_leaf":true,"leaf":-2.0}
	]}]}`
	m := NewManager(writeModel(t, content), 41)

	require.True(t, m.Loaded())
	assert.Equal(t, "2025.06", m.Version())

	pred := m.Predict(extractorVector(t, nil, domain.VelocitySnapshot{}))
	assert.True(t, pred.ModelUsed)
	assert.InDelta(t, 1/(1+math.Exp(-2.0)), pred.Probability, 1e-4)
	assert.Equal(t, 1, pred.Prediction)
	assert.Equal(t, ConfidenceMedium, pred.Confidence)
}

func TestFallbackRuleWeights(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.json"), 41)

	tests := []struct {
		name     string
		mutate   func(*domain.Transaction)
		vel      domain.VelocitySnapshot
		wantProb float64
	}{
		{
			name:     "clean daytime transaction",
			wantProb: 0,
		},
		{
			name: "high value only",
			mutate: func(tx *domain.Transaction) {
				tx.Amount = decimal.NewFromFloat(1500.50)
			},
			wantProb: 0.15,
		},
		{
			name: "very high value supersedes high value",
			mutate: func(tx *domain.Transaction) {
				tx.Amount = decimal.NewFromFloat(7500.25)
			},
			wantProb: 0.30,
		},
		{
			name: "disposable email and very high amount",
			mutate: func(tx *domain.Transaction) {
				tx.Amount = decimal.NewFromFloat(7500.25)
				tx.Customer.Email = "x@tempmail.com"
			},
			wantProb: 0.55,
		},
		{
			name: "night weekend rounded",
			mutate: func(tx *domain.Transaction) {
				tx.Amount = decimal.NewFromInt(500)
				tx.Timestamp = time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC) // Sunday night
			},
			wantProb: 0.25, // 10 night + 5 weekend + 10 rounded
		},
		{
			name:     "heavy 24h velocity",
			vel:      domain.VelocitySnapshot{CustomerTxCount24h: 11},
			wantProb: 0.20,
		},
		{
			name:     "moderate 24h velocity",
			vel:      domain.VelocitySnapshot{CustomerTxCount24h: 6},
			wantProb: 0.10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := m.Predict(extractorVector(t, tt.mutate, tt.vel))
			assert.False(t, pred.ModelUsed)
			assert.InDelta(t, tt.wantProb, pred.Probability, 1e-9)
		})
	}
}

func TestFallbackCapsAtOne(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.json"), 41)

	pred := m.Predict(extractorVector(t, func(tx *domain.Transaction) {
		tx.Amount = decimal.NewFromInt(9000)
		tx.Customer.Email = "x@tempmail.com"
		tx.Timestamp = time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)
	}, domain.VelocitySnapshot{CustomerTxCount24h: 20}))

	// 30 + 25 + 10 night + 5 weekend + 10 rounded + 20 velocity = 100 cap
	assert.InDelta(t, 1.0, pred.Probability, 1e-9)
	assert.Equal(t, 1, pred.Prediction)
}

func TestConfidenceGrading(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.95))
	assert.Equal(t, ConfidenceHigh, confidenceFor(0.05))
	assert.Equal(t, ConfidenceMedium, confidenceFor(0.75))
	assert.Equal(t, ConfidenceLow, confidenceFor(0.55))
}
