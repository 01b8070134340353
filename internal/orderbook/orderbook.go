package orderbook

import (
	"errors"
	"fmt"
	"sort"

	"github.com/OleSpjeldnas/ConvexFX/internal/order"
)

// ErrFrozen is returned by Commit/Reveal once the book has been frozen.
var ErrFrozen = errors.New("orderbook: frozen")

// ErrWrongEpoch is returned when a commitment targets a different epoch.
var ErrWrongEpoch = errors.New("orderbook: commitment for wrong epoch")

// ErrDuplicateCommitment is returned on a second commit with the same hash.
var ErrDuplicateCommitment = errors.New("orderbook: commitment already exists")

// ErrCommitmentNotFound is returned when revealing without a prior commit.
var ErrCommitmentNotFound = errors.New("orderbook: commitment not found")

// ErrAlreadyRevealed is returned on a second reveal for the same commitment.
var ErrAlreadyRevealed = errors.New("orderbook: commitment already revealed")

// ErrCommitmentMismatch is returned when a revealed order does not hash
// to its claimed commitment.
var ErrCommitmentMismatch = errors.New("orderbook: commitment verification failed")

type commitRecord struct {
	commitment Commitment
	revealed   bool
}

type revealRecord struct {
	order order.Pair
	hash  CommitmentHash
}

// Book is a single epoch's commit/reveal order book.
type Book struct {
	EpochID  uint64
	commits  map[CommitmentHash]*commitRecord
	revealed map[string]revealRecord
	frozen   bool
}

// New creates an empty order book for the given epoch.
func New(epochID uint64) *Book {
	return &Book{
		EpochID:  epochID,
		commits:  make(map[CommitmentHash]*commitRecord),
		revealed: make(map[string]revealRecord),
	}
}

// Commit records a commitment during the collect phase.
func (b *Book) Commit(c Commitment) error {
	if b.frozen {
		return ErrFrozen
	}
	if c.EpochID != b.EpochID {
		return fmt.Errorf("%w: expected %d, got %d", ErrWrongEpoch, b.EpochID, c.EpochID)
	}
	if _, exists := b.commits[c.Hash]; exists {
		return ErrDuplicateCommitment
	}
	b.commits[c.Hash] = &commitRecord{commitment: c}
	return nil
}

// Reveal validates and reveals an order during the reveal phase. It
// returns the order's ID on success.
func (b *Book) Reveal(o order.Pair, salt []byte) (string, error) {
	if b.frozen {
		return "", ErrFrozen
	}
	if err := order.Validate(o); err != nil {
		return "", err
	}
	hash, err := ComputeCommitment(o, salt)
	if err != nil {
		return "", err
	}
	record, ok := b.commits[hash]
	if !ok {
		return "", ErrCommitmentNotFound
	}
	if record.revealed {
		return "", ErrAlreadyRevealed
	}
	ok2, err := VerifyCommitment(hash, o, salt)
	if err != nil {
		return "", err
	}
	if !ok2 {
		return "", ErrCommitmentMismatch
	}
	record.revealed = true
	b.revealed[o.ID] = revealRecord{order: o, hash: hash}
	return o.ID, nil
}

// Freeze closes the book and returns revealed orders sorted by
// (commitment hash, order ID) so clearing input is independent of
// commit/reveal arrival order.
func (b *Book) Freeze() []order.Pair {
	b.frozen = true
	out := make([]revealRecordWithID, 0, len(b.revealed))
	for id, r := range b.revealed {
		out = append(out, revealRecordWithID{id: id, revealRecord: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hash != out[j].hash {
			return out[i].hash < out[j].hash
		}
		return out[i].id < out[j].id
	})
	orders := make([]order.Pair, len(out))
	for i, r := range out {
		orders[i] = r.order
	}
	return orders
}

type revealRecordWithID struct {
	id string
	revealRecord
}

// CommitmentCount returns the number of recorded commitments.
func (b *Book) CommitmentCount() int { return len(b.commits) }

// RevealedCount returns the number of revealed orders.
func (b *Book) RevealedCount() int { return len(b.revealed) }

// IsFrozen reports whether Freeze has been called.
func (b *Book) IsFrozen() bool { return b.frozen }
