package orderbook

import "testing"

func TestCommitRevealFlow(t *testing.T) {
	book := New(1)
	o := testOrder("order1")
	salt := []byte("salt123")
	hash, err := ComputeCommitment(o, salt)
	if err != nil {
		t.Fatalf("ComputeCommitment: %v", err)
	}

	if err := book.Commit(Commitment{Hash: hash, EpochID: 1, TimestampMs: 1000}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if book.CommitmentCount() != 1 || book.RevealedCount() != 0 {
		t.Fatalf("unexpected counts: %d commits, %d revealed", book.CommitmentCount(), book.RevealedCount())
	}

	id, err := book.Reveal(o, salt)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if id != "order1" {
		t.Fatalf("Reveal returned %q, want order1", id)
	}
	if book.RevealedCount() != 1 {
		t.Fatalf("expected 1 revealed order")
	}
}

func TestRevealWithoutCommit(t *testing.T) {
	book := New(1)
	o := testOrder("order1")
	if _, err := book.Reveal(o, []byte("salt123")); err == nil {
		t.Fatalf("expected error revealing without a prior commit")
	}
}

func TestDuplicateCommit(t *testing.T) {
	book := New(1)
	o := testOrder("order1")
	hash, _ := ComputeCommitment(o, []byte("salt123"))
	c := Commitment{Hash: hash, EpochID: 1, TimestampMs: 1000}
	if err := book.Commit(c); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := book.Commit(c); err == nil {
		t.Fatalf("expected error on duplicate commit")
	}
}

func TestFreezeOrdering(t *testing.T) {
	book := New(1)
	order1 := testOrder("order1")
	order2 := testOrder("order2")
	salt1 := []byte("salt1")
	salt2 := []byte("salt2")

	hash1, _ := ComputeCommitment(order1, salt1)
	hash2, _ := ComputeCommitment(order2, salt2)

	if err := book.Commit(Commitment{Hash: hash2, EpochID: 1, TimestampMs: 2000}); err != nil {
		t.Fatalf("commit order2: %v", err)
	}
	if err := book.Commit(Commitment{Hash: hash1, EpochID: 1, TimestampMs: 1000}); err != nil {
		t.Fatalf("commit order1: %v", err)
	}

	if _, err := book.Reveal(order2, salt2); err != nil {
		t.Fatalf("reveal order2: %v", err)
	}
	if _, err := book.Reveal(order1, salt1); err != nil {
		t.Fatalf("reveal order1: %v", err)
	}

	frozen := book.Freeze()
	if len(frozen) != 2 {
		t.Fatalf("expected 2 frozen orders, got %d", len(frozen))
	}

	wantFirst := "order1"
	wantSecond := "order2"
	if hash2 < hash1 {
		wantFirst, wantSecond = "order2", "order1"
	}
	if frozen[0].ID != wantFirst || frozen[1].ID != wantSecond {
		t.Fatalf("unexpected order: got [%s,%s], want [%s,%s]", frozen[0].ID, frozen[1].ID, wantFirst, wantSecond)
	}
	if !book.IsFrozen() {
		t.Fatalf("expected book to report frozen")
	}
}

func TestCommitAfterFreezeFails(t *testing.T) {
	book := New(1)
	book.Freeze()
	o := testOrder("order1")
	hash, _ := ComputeCommitment(o, []byte("salt"))
	if err := book.Commit(Commitment{Hash: hash, EpochID: 1}); err == nil {
		t.Fatalf("expected error committing to a frozen book")
	}
}
