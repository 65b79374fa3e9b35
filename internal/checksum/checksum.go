// Package checksum computes the content digests used for change detection
// and ETags.
package checksum

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Sum returns the hex-encoded BLAKE3-256 digest of data.
func Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 16 hex characters of Sum, enough for ETags.
func Short(data []byte) string {
	return Sum(data)[:16]
}
