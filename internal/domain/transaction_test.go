package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransaction() Transaction {
	return Transaction{
		TransactionID: "TXN-2025-001",
		Amount:        decimal.NewFromFloat(150.50),
		Currency:      "PEN",
		Timestamp:     time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
		Customer: Customer{
			Email:     "Maria.Lopez@gmail.com",
			Phone:     "+51 987-654-321",
			IPAddress: "190.42.15.8",
		},
		PaymentMethod: PaymentMethod{
			Type:  "credit_card",
			BIN:   "411111",
			Last4: "1234",
			Brand: "Visa",
		},
	}
}

func TestNormalizeValid(t *testing.T) {
	tx := validTransaction()
	require.NoError(t, tx.Normalize(time.Now()))

	assert.Equal(t, "maria.lopez@gmail.com", tx.Customer.Email)
	assert.Equal(t, "51987654321", tx.Customer.Phone)
	assert.Equal(t, "PEN", tx.Currency)
}

func TestNormalizeDefaultsTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := validTransaction()
	tx.Timestamp = time.Time{}

	require.NoError(t, tx.Normalize(now))
	assert.Equal(t, now, tx.Timestamp)
}

func TestNormalizeRoundsAmount(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.NewFromFloat(99.999)

	require.NoError(t, tx.Normalize(time.Now()))
	assert.True(t, tx.Amount.Equal(decimal.NewFromFloat(100.00)))
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Transaction)
		wantField string
	}{
		{"short transaction id", func(tx *Transaction) { tx.TransactionID = "ab" }, "transaction_id"},
		{"transaction id bad chars", func(tx *Transaction) { tx.TransactionID = "txn with spaces" }, "transaction_id"},
		{"amount below minimum", func(tx *Transaction) { tx.Amount = decimal.NewFromFloat(0.99) }, "amount"},
		{"amount above maximum", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(1_000_001) }, "amount"},
		{"unsupported currency", func(tx *Transaction) { tx.Currency = "EUR" }, "currency"},
		{"malformed email", func(tx *Transaction) { tx.Customer.Email = "not-an-email" }, "customer.email"},
		{"short phone", func(tx *Transaction) { tx.Customer.Phone = "1234567" }, "customer.phone"},
		{"phone with letters", func(tx *Transaction) { tx.Customer.Phone = "12345abc90" }, "customer.phone"},
		{"private ip 10.x", func(tx *Transaction) { tx.Customer.IPAddress = "10.0.0.5" }, "customer.ip_address"},
		{"private ip 172.16", func(tx *Transaction) { tx.Customer.IPAddress = "172.20.1.1" }, "customer.ip_address"},
		{"private ip 192.168", func(tx *Transaction) { tx.Customer.IPAddress = "192.168.1.1" }, "customer.ip_address"},
		{"loopback ip", func(tx *Transaction) { tx.Customer.IPAddress = "127.0.0.1" }, "customer.ip_address"},
		{"not an ip", func(tx *Transaction) { tx.Customer.IPAddress = "256.1.1.1" }, "customer.ip_address"},
		{"unsupported payment type", func(tx *Transaction) { tx.PaymentMethod.Type = "crypto" }, "payment_method.type"},
		{"short bin", func(tx *Transaction) { tx.PaymentMethod.BIN = "41111" }, "payment_method.bin"},
		{"alpha last4", func(tx *Transaction) { tx.PaymentMethod.Last4 = "12ab" }, "payment_method.last4"},
		{"unsupported brand", func(tx *Transaction) { tx.PaymentMethod.Brand = "UnionPay" }, "payment_method.brand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := tx.Normalize(time.Now())
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestNormalizeBoundaryIPs(t *testing.T) {
	// 172.15.x.x and 172.32.x.x sit just outside the private range.
	for _, ip := range []string{"172.15.0.1", "172.32.0.1", "8.8.8.8"} {
		tx := validTransaction()
		tx.Customer.IPAddress = ip
		assert.NoError(t, tx.Normalize(time.Now()), ip)
	}
}

func TestCanAuthenticate(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		key  APIKey
		want bool
	}{
		{"active no expiry", APIKey{IsActive: true}, true},
		{"active future expiry", APIKey{IsActive: true, ExpiresAt: &future}, true},
		{"active expired", APIKey{IsActive: true, ExpiresAt: &past}, false},
		{"inactive", APIKey{IsActive: false}, false},
		{"inactive future expiry", APIKey{IsActive: false, ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.CanAuthenticate(now))
		})
	}
}
