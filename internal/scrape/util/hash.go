package util

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashString returns a short stable identifier for s.
func HashString(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}
