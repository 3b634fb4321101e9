package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a stable opaque identifier for a user ID, safe to
// put in logs and storage keys.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
