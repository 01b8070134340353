package reporter

import (
	"testing"

	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
)

func TestComputeHashLength(t *testing.T) {
	hash := computeHash([]byte("hello world"))
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	a := computeHash([]byte("test"))
	b := computeHash([]byte("test"))
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
}

func TestMemoryReporterPublish(t *testing.T) {
	r := NewMemoryReporter()

	inputs := map[string]any{"epoch": 1}
	outputs := map[string]any{"fills": []any{}}

	report, err := r.Publish(1, inputs, outputs)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if report.EpochID != 1 {
		t.Errorf("epoch_id = %d, want 1", report.EpochID)
	}
	if len(report.InputHash) != 64 {
		t.Errorf("input_hash length = %d, want 64", len(report.InputHash))
	}
	if len(report.OutputHash) != 64 {
		t.Errorf("output_hash length = %d, want 64", len(report.OutputHash))
	}
	if len(report.ChainHash) != 64 {
		t.Errorf("chain_hash length = %d, want 64", len(report.ChainHash))
	}
}

func TestMemoryReporterChainsAcrossEpochs(t *testing.T) {
	r := NewMemoryReporter()

	first, err := r.Publish(1, map[string]any{"a": 1}, map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	second, err := r.Publish(2, map[string]any{"a": 3}, map[string]any{"b": 4})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if first.ChainHash == second.ChainHash {
		t.Errorf("chain hash did not advance between epochs")
	}
	if r.ChainTip() != second.ChainHash {
		t.Errorf("chain tip = %s, want %s", r.ChainTip(), second.ChainHash)
	}
	if got := r.Reports(); len(got) != 2 {
		t.Errorf("Reports() returned %d entries, want 2", len(got))
	}
}

func TestMemoryReporterChainDivergesOnDifferentInputs(t *testing.T) {
	r1, r2 := NewMemoryReporter(), NewMemoryReporter()

	rep1, err := r1.Publish(1, map[string]any{"a": 1}, map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rep2, err := r2.Publish(1, map[string]any{"a": 999}, map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if rep1.ChainHash == rep2.ChainHash {
		t.Errorf("chain hash should differ when inputs differ")
	}
}

func TestBuildWitnessAndDigest(t *testing.T) {
	inst := clearing.EpochInstance{EpochID: 5, InventoryQ: []float64{0, 0, 0, 0, 0, 0}}
	sol := clearing.EpochSolution{
		EpochID:       5,
		Y:             []float64{0, 0.01, -0.02, 0, 0, 0},
		InventoryPost: []float64{100, -50, 0, 0, 0, 0},
		Fills: []clearing.Fill{
			{OrderID: "o1", Alpha: 0.5},
		},
	}

	witness := BuildWitness(sol, inst)
	if witness.EpochID != 5 {
		t.Errorf("witness epoch_id = %d, want 5", witness.EpochID)
	}
	if len(witness.Prices) != 6 {
		t.Errorf("witness should carry a price per asset, got %d", len(witness.Prices))
	}
	if len(witness.Fills) != 1 {
		t.Errorf("witness should carry all fills, got %d", len(witness.Fills))
	}

	digest, err := witness.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if len(digest) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(digest))
	}
}
