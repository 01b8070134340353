package reporter

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

const genesisSeed = "convexfx:reporter:genesis:v1"

// chainHasher computes the chained audit digest
// state_hash[N] = SHA-256(prevHash || epochID || digest), mirroring the
// teacher's StateHasher.
type chainHasher struct {
	mu       sync.Mutex
	prevHash [32]byte
}

func newChainHasher() *chainHasher {
	return &chainHasher{prevHash: sha256.Sum256([]byte(genesisSeed))}
}

func (h *chainHasher) next(epochID uint64, digest []byte) [32]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], epochID)
	hasher.Write(idBuf[:])

	hasher.Write(digest)

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	h.prevHash = hash
	return hash
}

// tip returns the current chain head without advancing it.
func (h *chainHasher) tip() [32]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prevHash
}
