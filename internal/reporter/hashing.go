package reporter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashRef is a hex-encoded SHA-256 digest.
type HashRef string

// computeHash hashes raw bytes.
func computeHash(data []byte) HashRef {
	sum := sha256.Sum256(data)
	return HashRef(hex.EncodeToString(sum[:]))
}

// computeJSONHash hashes the JSON encoding of v. encoding/json marshals a
// struct's fields in declaration order, so any value built from a fixed
// struct type hashes deterministically without a separate canonicalization
// pass.
func computeJSONHash(v any) (HashRef, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return computeHash(data), nil
}
