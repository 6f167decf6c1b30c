package features

import (
	"time"

	"github.com/dygsom/fraudscore/internal/domain"
)

var timeFeatureNames = []string{
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"is_night",
	"is_business_hours",
	"day_of_month",
	"is_month_start",
	"is_month_end",
}

// extractTimeFeatures derives temporal indicators from the transaction
// timestamp. Day-of-week is Monday=0 through Sunday=6.
func extractTimeFeatures(tx *domain.Transaction, _ domain.VelocitySnapshot) []float64 {
	ts := tx.Timestamp.UTC()
	hour := ts.Hour()
	dayOfWeek := (int(ts.Weekday()) + 6) % 7
	dayOfMonth := ts.Day()
	lastDay := lastDayOfMonth(ts)

	return []float64{
		float64(hour),
		float64(dayOfWeek),
		boolToFloat(dayOfWeek >= 5),
		boolToFloat(hour >= 22 || hour < 6),
		boolToFloat(hour >= 9 && hour < 18),
		float64(dayOfMonth),
		boolToFloat(dayOfMonth <= 3),
		boolToFloat(dayOfMonth >= lastDay-2),
	}
}

// lastDayOfMonth returns the number of days in the timestamp's month. Day 0
// of the following month normalizes to the last day of this one, which keeps
// February correct in leap years.
func lastDayOfMonth(ts time.Time) int {
	return time.Date(ts.Year(), ts.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
