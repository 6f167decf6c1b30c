package features

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/dygsom/fraudscore/internal/domain"
)

var emailFeatureNames = []string{
	"email_length",
	"email_domain",
	"is_disposable_email",
	"is_gmail",
	"is_yahoo",
	"is_corporate_email",
	"email_has_numbers",
	"email_numeric_ratio",
}

// disposableDomains are known throwaway email providers.
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"throwaway.email":   true,
	"mailinator.com":    true,
	"trashmail.com":     true,
	"maildrop.cc":       true,
	"yopmail.com":       true,
	"temp-mail.org":     true,
}

// freeProviders are consumer email services; addresses outside this set and
// the disposable set count as corporate.
var freeProviders = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"aol.com":        true,
	"icloud.com":     true,
	"protonmail.com": true,
}

func extractEmailFeatures(tx *domain.Transaction, _ domain.VelocitySnapshot) []float64 {
	email := strings.ToLower(strings.TrimSpace(tx.Customer.Email))

	localPart := email
	emailDomain := "unknown.com"
	if at := strings.Index(email, "@"); at >= 0 {
		localPart = email[:at]
		emailDomain = email[at+1:]
	}

	digits := 0
	for _, r := range localPart {
		if unicode.IsDigit(r) {
			digits++
		}
	}

	numericRatio := 0.0
	if len(localPart) > 0 {
		numericRatio = float64(digits) / float64(len(localPart))
	}

	isCorporate := !freeProviders[emailDomain] &&
		!disposableDomains[emailDomain] &&
		strings.Contains(emailDomain, ".") &&
		len(emailDomain) > 5

	return []float64{
		float64(len(email)),
		float64(domainHash(emailDomain)),
		boolToFloat(disposableDomains[emailDomain]),
		boolToFloat(emailDomain == "gmail.com"),
		boolToFloat(emailDomain == "yahoo.com"),
		boolToFloat(isCorporate),
		boolToFloat(digits > 0),
		math.Round(numericRatio*10000) / 10000,
	}
}

// domainHash maps a domain to a stable bucket in [0, 10000). FNV-1a keeps the
// value identical across processes and restarts.
func domainHash(domain string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(domain))
	return h.Sum32() % 10000
}
