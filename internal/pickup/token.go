package pickup

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	secretBytes = 32

	// DefaultValidityDays is how long a pickup token stays redeemable.
	DefaultValidityDays = 30
)

// IssueSecret generates a fresh pickup secret and its storage hash. The
// clear secret is 64 hex characters and is never persisted.
func IssueSecret() (secret, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate pickup secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	return secret, HashSecret(secret), nil
}

// HashSecret returns the hex SHA-256 digest stored in pickup_tokens.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret reports whether the secret matches the stored hash without
// leaking timing information.
func VerifySecret(secret, hash string) bool {
	computed := HashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// ExpiryFrom returns the token expiry for a given issue time. Non-positive
// day counts fall back to the default.
func ExpiryFrom(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultValidityDays
	}
	return now.AddDate(0, 0, days)
}

// IsExpired reports whether the token is past its expiry. A token expiring
// exactly now is still valid.
func IsExpired(now, expiresAt time.Time) bool {
	return now.After(expiresAt)
}
