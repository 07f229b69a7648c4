package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdentityKey normalizes a submitter IP and optional device fingerprint into
// the fixed-length key quota records are attributed to. The same submitter
// always maps to the same key.
func IdentityKey(ip, deviceFingerprint string) string {
	sum := sha256.Sum256([]byte(ip + "|" + deviceFingerprint))
	return hex.EncodeToString(sum[:])
}
