package features

import "github.com/dygsom/fraudscore/internal/domain"

var categoricalFeatureNames = []string{
	"currency_PEN",
	"currency_USD",
	"payment_credit_card",
	"payment_debit_card",
	"payment_digital_wallet",
	"merchant_retail",
	"merchant_ecommerce",
	"merchant_services",
}

func extractCategoricalFeatures(tx *domain.Transaction, _ domain.VelocitySnapshot) []float64 {
	category := tx.MerchantCategory()

	return []float64{
		boolToFloat(tx.Currency == "PEN"),
		boolToFloat(tx.Currency == "USD"),
		boolToFloat(tx.PaymentMethod.Type == "credit_card"),
		boolToFloat(tx.PaymentMethod.Type == "debit_card"),
		boolToFloat(tx.PaymentMethod.Type == "digital_wallet"),
		boolToFloat(category == "retail"),
		boolToFloat(category == "ecommerce" || category == "e-commerce"),
		boolToFloat(category == "services"),
	}
}
