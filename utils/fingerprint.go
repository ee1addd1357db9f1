package utils

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// TokenFingerprint returns a short, stable digest of a bearer token that is
// safe to put in logs.
func TokenFingerprint(token string) string {
	if token == "" {
		return "<none>"
	}
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
