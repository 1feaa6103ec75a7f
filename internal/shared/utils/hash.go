// Package utils provides small helpers shared across the service.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex SHA-256 digest of a script source, used to
// correlate log lines and metrics for identical sources without storing
// the source itself.
func Fingerprint(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// ShortFingerprint returns the first 12 hex characters of Fingerprint,
// enough to disambiguate in logs.
func ShortFingerprint(source string) string {
	return Fingerprint(source)[:12]
}
