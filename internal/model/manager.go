// Package model serves fraud probabilities from a gradient-boosted classifier
// loaded once at startup, degrading to a rule-based score when the model is
// unavailable.
package model

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dygsom/fraudscore/internal/features"
)

// Confidence grades how far a probability sits from the decision boundary.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Prediction is the outcome of scoring one feature vector.
type Prediction struct {
	Probability float64    `json:"probability"`
	Prediction  int        `json:"prediction"`
	Confidence  Confidence `json:"confidence"`
	ModelUsed   bool       `json:"model_used"`
}

// Manager holds the loaded classifier. It is immutable after construction;
// reloading a model is an out-of-process redeploy.
type Manager struct {
	ensemble *Ensemble
	version  string
}

// NewManager loads the ensemble at path, validating it against the
// extractor's feature count. A missing or invalid file is not fatal: the
// manager starts in rule-based fallback mode.
func NewManager(path string, featureCount int) *Manager {
	m := &Manager{version: "fallback-rules"}

	ensemble, err := LoadEnsemble(path, featureCount)
	if err != nil {
		log.Warn().Err(err).Str("model_path", path).
			Msg("model unavailable, serving rule-based fallback")
		return m
	}

	m.ensemble = ensemble
	m.version = ensemble.Version
	log.Info().Str("model_version", ensemble.Version).
		Int("n_features", ensemble.NFeatures).
		Int("trees", len(ensemble.Trees)).
		Msg("fraud model loaded")
	return m
}

// Loaded reports whether a trained model is serving predictions.
func (m *Manager) Loaded() bool { return m.ensemble != nil }

// Version returns the model version string, or "fallback-rules".
func (m *Manager) Version() string { return m.version }

// Predict scores a feature vector. Any panic during inference is contained
// and answered with the rule-based fallback; model errors never surface to
// the caller.
func (m *Manager) Predict(vec features.Vector) (pred Prediction) {
	if m.ensemble == nil {
		return m.fallback(vec)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("model inference panicked, using fallback")
			pred = m.fallback(vec)
		}
	}()

	probability := m.ensemble.Probability(vec.Values)

	binary := 0
	if probability >= 0.5 {
		binary = 1
	}

	return Prediction{
		Probability: round4(probability),
		Prediction:  binary,
		Confidence:  confidenceFor(probability),
		ModelUsed:   true,
	}
}

// fallback produces a rule-based score from interpretable feature flags.
// Weights are additive points capped at 100, scaled to a probability.
func (m *Manager) fallback(vec features.Vector) Prediction {
	score := 0.0

	if vec.Get("is_very_high_value") == 1 {
		score += 30
	} else if vec.Get("is_high_value") == 1 {
		score += 15
	}
	if vec.Get("is_night") == 1 {
		score += 10
	}
	if vec.Get("is_weekend") == 1 {
		score += 5
	}
	if vec.Get("is_disposable_email") == 1 {
		score += 25
	}
	if vec.Get("amount_rounded") == 1 {
		score += 10
	}

	txCount24h := vec.Get("velocity_customer_tx_count_24h")
	if txCount24h > 10 {
		score += 20
	} else if txCount24h > 5 {
		score += 10
	}

	score = math.Min(score, 100)
	probability := score / 100

	binary := 0
	if probability >= 0.7 {
		binary = 1
	}

	return Prediction{
		Probability: round4(probability),
		Prediction:  binary,
		Confidence:  ConfidenceLow,
		ModelUsed:   false,
	}
}

// confidenceFor grades distance from the 0.5 decision boundary.
func confidenceFor(probability float64) Confidence {
	distance := math.Abs(probability - 0.5)
	switch {
	case distance >= 0.4:
		return ConfidenceHigh
	case distance >= 0.2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
