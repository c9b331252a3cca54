package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum computes the content fingerprint of an uploaded file: the hex-encoded
// SHA-256 digest of the full raw byte content. Identical content always
// yields the identical fingerprint.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
