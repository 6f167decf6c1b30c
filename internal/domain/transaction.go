package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction amount bounds, inclusive.
var (
	MinAmount = decimal.NewFromInt(1)
	MaxAmount = decimal.NewFromInt(1_000_000)
)

var (
	transactionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,100}$`)
	emailPattern         = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
	ipv4Pattern          = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
	digitsPattern        = regexp.MustCompile(`^\d+$`)
	phoneSeparators      = regexp.MustCompile(`[\s\-()+ ]`)
)

// SupportedCurrencies are the ISO-4217 codes the service accepts.
var SupportedCurrencies = map[string]bool{"PEN": true, "USD": true}

// SupportedCardBrands are the accepted card networks.
var SupportedCardBrands = map[string]bool{
	"Visa": true, "Mastercard": true, "Amex": true,
	"Discover": true, "Diners": true, "JCB": true,
}

// SupportedPaymentTypes are the accepted payment instrument kinds.
var SupportedPaymentTypes = map[string]bool{"credit_card": true, "debit_card": true}

// Customer is the customer block of an incoming transaction.
type Customer struct {
	ID                string `json:"id,omitempty"`
	Email             string `json:"email"`
	Phone             string `json:"phone,omitempty"`
	IPAddress         string `json:"ip_address"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// PaymentMethod carries only the non-sensitive card fields: BIN and last-4.
type PaymentMethod struct {
	Type  string `json:"type"`
	BIN   string `json:"bin"`
	Last4 string `json:"last4"`
	Brand string `json:"brand"`
}

// Merchant is optional merchant context for categorical features.
type Merchant struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

// Transaction is the external scoring input after JSON decoding.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	Customer      Customer        `json:"customer"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Merchant      *Merchant       `json:"merchant,omitempty"`
}

// Normalize validates every field constraint and canonicalizes the
// transaction in place: email and payment type are lowercased, phone is
// reduced to digits, the amount is rounded to 2 decimal places, and a zero
// timestamp defaults to now (UTC). The first violated constraint is returned
// as a *ValidationError.
func (t *Transaction) Normalize(now time.Time) error {
	if !transactionIDPattern.MatchString(t.TransactionID) {
		return NewValidationError("transaction_id", "must be 3-100 characters of [A-Za-z0-9_-]")
	}

	t.Amount = t.Amount.Round(2)
	if t.Amount.LessThan(MinAmount) || t.Amount.GreaterThan(MaxAmount) {
		return NewValidationError("amount", "must be between %s and %s", MinAmount, MaxAmount)
	}

	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if !SupportedCurrencies[t.Currency] {
		return NewValidationError("currency", "unsupported currency %q", t.Currency)
	}

	if t.Timestamp.IsZero() {
		t.Timestamp = now.UTC()
	} else {
		t.Timestamp = t.Timestamp.UTC()
	}

	if err := t.Customer.normalize(); err != nil {
		return err
	}
	if err := t.PaymentMethod.normalize(); err != nil {
		return err
	}
	return nil
}

func (c *Customer) normalize() error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if !emailPattern.MatchString(c.Email) {
		return NewValidationError("customer.email", "invalid email format")
	}

	if c.Phone != "" {
		digits := phoneSeparators.ReplaceAllString(c.Phone, "")
		if !digitsPattern.MatchString(digits) {
			return NewValidationError("customer.phone", "must contain only digits and separators")
		}
		if len(digits) < 8 || len(digits) > 15 {
			return NewValidationError("customer.phone", "must be 8-15 digits")
		}
		c.Phone = digits
	}

	return validatePublicIPv4(c.IPAddress)
}

// validatePublicIPv4 accepts only public IPv4 addresses. RFC 1918 ranges and
// loopback are rejected because scoring requires the customer's real network
// origin.
func validatePublicIPv4(ip string) error {
	m := ipv4Pattern.FindStringSubmatch(ip)
	if m == nil {
		return NewValidationError("customer.ip_address", "must be a valid IPv4 address")
	}

	octets := make([]int, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > 255 {
			return NewValidationError("customer.ip_address", "octets must be 0-255")
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 10:
		return NewValidationError("customer.ip_address", "private IP addresses not allowed (10.x.x.x)")
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return NewValidationError("customer.ip_address", "private IP addresses not allowed (172.16-31.x.x)")
	case octets[0] == 192 && octets[1] == 168:
		return NewValidationError("customer.ip_address", "private IP addresses not allowed (192.168.x.x)")
	case octets[0] == 127:
		return NewValidationError("customer.ip_address", "loopback IP not allowed")
	}
	return nil
}

func (p *PaymentMethod) normalize() error {
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	if !SupportedPaymentTypes[p.Type] {
		return NewValidationError("payment_method.type", "must be credit_card or debit_card")
	}
	if len(p.BIN) != 6 || !digitsPattern.MatchString(p.BIN) {
		return NewValidationError("payment_method.bin", "must be exactly 6 digits")
	}
	if len(p.Last4) != 4 || !digitsPattern.MatchString(p.Last4) {
		return NewValidationError("payment_method.last4", "must be exactly 4 digits")
	}
	if !SupportedCardBrands[p.Brand] {
		return NewValidationError("payment_method.brand", "unsupported card brand %q", p.Brand)
	}
	return nil
}

// MerchantCategory returns the merchant category or "" when absent.
func (t *Transaction) MerchantCategory() string {
	if t.Merchant == nil {
		return ""
	}
	return strings.ToLower(t.Merchant.Category)
}

// Record is the persisted form of a scored transaction. Records are created
// once at scoring completion and never mutated.
type Record struct {
	ID            string          `db:"id"`
	TransactionID string          `db:"transaction_id"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Timestamp     time.Time       `db:"timestamp"`
	CustomerID    string          `db:"customer_id"`
	CustomerEmail string          `db:"customer_email"`
	CustomerPhone string          `db:"customer_phone"`
	CustomerIP    string          `db:"customer_ip"`
	CardBIN       string          `db:"card_bin"`
	CardLast4     string          `db:"card_last4"`
	CardBrand     string          `db:"card_brand"`
	FraudScore    float64         `db:"fraud_score"`
	RiskLevel     RiskLevel       `db:"risk_level"`
	Decision      Recommendation  `db:"decision"`
	CreatedAt     time.Time       `db:"created_at"`
}
