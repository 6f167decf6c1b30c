// Package auth resolves opaque API-key tokens to tenant identities. Tokens
// are never stored; only a salted SHA-256 hash is persisted and compared.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// KeyPrefix is the fixed prefix of every issued API key.
const KeyPrefix = "dygsom_"

// keySuffixLength is the number of URL-safe characters after the prefix.
const keySuffixLength = 32

// HashKey computes the hex SHA-256 of key concatenated with the salt. The
// salt protects stored hashes against precomputed tables.
func HashKey(key, salt string) string {
	sum := sha256.Sum256([]byte(key + salt))
	return hex.EncodeToString(sum[:])
}

// GenerateKey produces a new API key token: the fixed prefix plus 32 random
// URL-safe characters. The plain token is shown once at issuance; only its
// hash is stored.
func GenerateKey() (string, error) {
	buf := make([]byte, keySuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	suffix := base64.RawURLEncoding.EncodeToString(buf)[:keySuffixLength]
	return KeyPrefix + suffix, nil
}
