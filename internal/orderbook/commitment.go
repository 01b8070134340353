// Package orderbook implements a commit/reveal order book: traders
// submit a hash of their order before the epoch freezes, then reveal the
// order itself, which is accepted only if it hashes to a prior
// commitment. Freezing returns revealed orders in a hash-determined
// order so epoch clearing is reproducible regardless of arrival order.
package orderbook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/OleSpjeldnas/ConvexFX/internal/order"
)

// CommitmentHash is a hex-encoded SHA-256 digest.
type CommitmentHash string

// Valid reports whether h is 64 lowercase/uppercase hex characters.
func (h CommitmentHash) Valid() bool {
	if len(h) != 64 {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// Commitment is a trader's pre-reveal pledge: the hash of an order they
// will later reveal, bound to a specific epoch.
type Commitment struct {
	Hash        CommitmentHash
	EpochID     uint64
	TimestampMs uint64
}

// ComputeCommitment hashes an order together with a salt:
// SHA256(json(order) || salt), hex-encoded.
func ComputeCommitment(o order.Pair, salt []byte) (CommitmentHash, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("orderbook: marshal order: %w", err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write(salt)
	return CommitmentHash(hex.EncodeToString(h.Sum(nil))), nil
}

// VerifyCommitment reports whether order+salt hashes to want.
func VerifyCommitment(want CommitmentHash, o order.Pair, salt []byte) (bool, error) {
	got, err := ComputeCommitment(o, salt)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
