package features

import (
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/dygsom/fraudscore/internal/domain"
)

var amountFeatureNames = []string{
	"amount",
	"amount_log",
	"amount_rounded",
	"amount_decimal_places",
	"is_high_value",
	"is_very_high_value",
	"amount_percentile",
}

// percentileThresholds map typical amounts onto a coarse 10..100 percentile.
var percentileThresholds = []int64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

var (
	ten      = decimal.NewFromInt(10)
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

func extractAmountFeatures(tx *domain.Transaction, _ domain.VelocitySnapshot) []float64 {
	amount := tx.Amount
	if amount.IsNegative() {
		log.Warn().Str("transaction_id", tx.TransactionID).
			Str("amount", amount.String()).
			Msg("negative amount coerced to absolute value")
		amount = amount.Abs()
	}

	amountF, _ := amount.Float64()
	places := decimalPlaces(amount)

	isRounded := places == 0 &&
		(amount.Mod(ten).IsZero() || amount.Mod(hundred).IsZero() || amount.Mod(thousand).IsZero())

	percentile := 0
	for i, threshold := range percentileThresholds {
		if amount.GreaterThanOrEqual(decimal.NewFromInt(threshold)) {
			percentile = (i + 1) * 10
		}
	}

	return []float64{
		amountF,
		math.Log1p(amountF),
		boolToFloat(isRounded),
		float64(places),
		boolToFloat(amountF > 1000),
		boolToFloat(amountF > 5000),
		float64(percentile),
	}
}

// decimalPlaces counts significant digits after the decimal point, ignoring
// trailing zeros. Amounts are rounded to 2 places upstream, so the loop is
// bounded in practice.
func decimalPlaces(d decimal.Decimal) int {
	for places := int32(0); ; places++ {
		if d.Truncate(places).Equal(d) {
			return int(places)
		}
	}
}
