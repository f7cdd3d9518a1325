package models

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies the content of a snapshot: two snapshots with the
// same validated form share a fingerprint. It is the memoisation key for
// computed results and the ETag of the state endpoint.
func Fingerprint(s Snapshot) string {
	data, err := Encode(s)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
