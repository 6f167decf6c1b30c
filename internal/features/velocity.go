package features

import "github.com/dygsom/fraudscore/internal/domain"

var velocityFeatureNames = []string{
	"velocity_customer_tx_count_1h",
	"velocity_customer_tx_count_24h",
	"velocity_customer_tx_count_7d",
	"velocity_customer_amount_1h",
	"velocity_customer_amount_24h",
	"velocity_customer_amount_7d",
	"velocity_ip_tx_count_1h",
	"velocity_ip_tx_count_24h",
	"velocity_device_tx_count_1h",
	"velocity_device_tx_count_24h",
}

func extractVelocityFeatures(_ *domain.Transaction, vel domain.VelocitySnapshot) []float64 {
	return []float64{
		float64(vel.CustomerTxCount1h),
		float64(vel.CustomerTxCount24h),
		float64(vel.CustomerTxCount7d),
		vel.CustomerAmount1h,
		vel.CustomerAmount24h,
		vel.CustomerAmount7d,
		float64(vel.IPTxCount1h),
		float64(vel.IPTxCount24h),
		float64(vel.DeviceTxCount1h),
		float64(vel.DeviceTxCount24h),
	}
}
