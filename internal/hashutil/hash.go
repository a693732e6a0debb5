// Package hashutil provides the fingerprint hashes used for cache and
// rate-limit keys. Input strings are hashed as-is, with no normalization:
// two textually different but equivalent URLs get distinct fingerprints.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
