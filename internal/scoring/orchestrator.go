// Package scoring wires the hot path: velocity snapshot, feature vector,
// model probability, decision, and durable persistence, in that order.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/domain"
	"github.com/dygsom/fraudscore/internal/features"
	"github.com/dygsom/fraudscore/internal/metrics"
	"github.com/dygsom/fraudscore/internal/model"
	"github.com/dygsom/fraudscore/internal/persistence"
	"github.com/dygsom/fraudscore/internal/velocity"
)

// Details carries the supporting evidence returned with a score.
type Details struct {
	Amount         float64                 `json:"amount"`
	Currency       string                  `json:"currency"`
	CustomerEmail  string                  `json:"customer_email"`
	VelocityChecks domain.VelocitySnapshot `json:"velocity_checks"`
}

// Result is the scoring response body.
type Result struct {
	TransactionID    string                `json:"transaction_id"`
	FraudScore       float64               `json:"fraud_score"`
	RiskLevel        domain.RiskLevel      `json:"risk_level"`
	Recommendation   domain.Recommendation `json:"recommendation"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	Timestamp        time.Time             `json:"timestamp"`
	Details          Details               `json:"details"`
}

// Orchestrator runs the scoring pipeline for one transaction at a time.
// All collaborators are injected once at startup and shared across requests.
type Orchestrator struct {
	velocity   *velocity.Aggregator
	extractor  *features.Extractor
	model      *model.Manager
	txRepo     persistence.TransactionRepo
	thresholds domain.Thresholds
	metrics    *metrics.Registry
}

// New builds the orchestrator.
func New(
	vel *velocity.Aggregator,
	extractor *features.Extractor,
	mgr *model.Manager,
	txRepo persistence.TransactionRepo,
	thresholds domain.Thresholds,
	m *metrics.Registry,
) *Orchestrator {
	return &Orchestrator{
		velocity:   vel,
		extractor:  extractor,
		model:      mgr,
		txRepo:     txRepo,
		thresholds: thresholds,
		metrics:    m,
	}
}

// Score runs the pipeline for a validated transaction. The record is
// persisted before the result is returned: a successful return guarantees a
// durable row whose (fraud_score, risk_level, decision) equal the result's.
func (o *Orchestrator) Score(ctx context.Context, tx *domain.Transaction) (*Result, error) {
	start := time.Now()

	snapshot := o.velocity.Snapshot(ctx, tx.Customer.Email, tx.Customer.IPAddress)

	featureStart := time.Now()
	vector := o.extractor.Extract(tx, snapshot)
	o.metrics.FeatureExtractionDur.Observe(time.Since(featureStart).Seconds())

	modelStart := time.Now()
	prediction := o.model.Predict(vector)
	o.metrics.ModelDuration.Observe(time.Since(modelStart).Seconds())

	source := "model"
	if !prediction.ModelUsed {
		source = "fallback"
	}
	o.metrics.ModelPredictions.WithLabelValues(source).Inc()

	score := round4(prediction.Probability)
	level, recommendation := o.thresholds.Decide(score)

	o.metrics.FraudScores.Observe(score)
	o.metrics.RiskLevels.WithLabelValues(string(level)).Inc()
	o.metrics.Recommendations.WithLabelValues(string(recommendation)).Inc()

	record := o.buildRecord(tx, score, level, recommendation)
	if err := o.txRepo.Insert(ctx, record); err != nil {
		log.Error().Err(err).Str("transaction_id", tx.TransactionID).
			Msg("transaction insert failed, refusing to answer")
		return nil, fmt.Errorf("%w: %s", domain.ErrPersistenceWrite, err)
	}

	log.Info().
		Str("transaction_id", tx.TransactionID).
		Float64("fraud_score", score).
		Str("risk_level", string(level)).
		Str("recommendation", string(recommendation)).
		Bool("model_used", prediction.ModelUsed).
		Dur("elapsed", time.Since(start)).
		Msg("transaction scored")

	amount, _ := tx.Amount.Float64()
	return &Result{
		TransactionID:    tx.TransactionID,
		FraudScore:       score,
		RiskLevel:        level,
		Recommendation:   recommendation,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        tx.Timestamp,
		Details: Details{
			Amount:         amount,
			Currency:       tx.Currency,
			CustomerEmail:  tx.Customer.Email,
			VelocityChecks: snapshot,
		},
	}, nil
}

func (o *Orchestrator) buildRecord(tx *domain.Transaction, score float64, level domain.RiskLevel, rec domain.Recommendation) *domain.Record {
	return &domain.Record{
		TransactionID: tx.TransactionID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Timestamp:     tx.Timestamp,
		CustomerID:    tx.Customer.ID,
		CustomerEmail: tx.Customer.Email,
		CustomerPhone: tx.Customer.Phone,
		CustomerIP:    tx.Customer.IPAddress,
		CardBIN:       tx.PaymentMethod.BIN,
		CardLast4:     tx.PaymentMethod.Last4,
		CardBrand:     tx.PaymentMethod.Brand,
		FraudScore:    score,
		RiskLevel:     level,
		Decision:      rec,
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
