package domain

// RiskLevel classifies a fraud score into a four-valued label.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Recommendation is the action the caller should take for a transaction.
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendReview  Recommendation = "REVIEW"
	RecommendDecline Recommendation = "DECLINE"
)

// Thresholds holds the score boundaries between risk levels. The defaults
// implement the canonical decision table; deployments may tune them via
// FRAUD_SCORE_*_THRESHOLD.
type Thresholds struct {
	Low    float64 // below: LOW
	Medium float64 // below: MEDIUM
	High   float64 // below: HIGH, at or above: CRITICAL
}

// DefaultThresholds returns the standard 0.30 / 0.50 / 0.80 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.30, Medium: 0.50, High: 0.80}
}

// Classify maps a fraud score to its risk level.
func (t Thresholds) Classify(score float64) RiskLevel {
	switch {
	case score < t.Low:
		return RiskLow
	case score < t.Medium:
		return RiskMedium
	case score < t.High:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Recommend derives the act/review/decline recommendation from the score and
// its risk level. HIGH risk splits at 0.70: below it a human reviews, at or
// above it the transaction is declined outright.
func (t Thresholds) Recommend(score float64, level RiskLevel) Recommendation {
	switch level {
	case RiskLow:
		return RecommendApprove
	case RiskMedium:
		return RecommendReview
	case RiskHigh:
		if score < 0.70 {
			return RecommendReview
		}
		return RecommendDecline
	default:
		return RecommendDecline
	}
}

// Decide applies the full decision table in one step.
func (t Thresholds) Decide(score float64) (RiskLevel, Recommendation) {
	level := t.Classify(score)
	return level, t.Recommend(score, level)
}
