// Package reporter builds an append-only audit trail over cleared
// epochs: one EpochReport per epoch, hashed into a chained digest so any
// tampering with a past report invalidates every report after it.
//
// Grounded on convexfx-report's hashing.rs/reporter.rs (input/output
// hashing, the Reporter trait, MemoryReporter) and on the teacher's
// chained state-hash pattern in core/hasher.go.
package reporter

import (
	"encoding/hex"
	"encoding/json"
	"sync"
)

// ReportData carries the raw inputs and outputs a report was built from,
// for replay and audit.
type ReportData struct {
	Inputs  json.RawMessage `json:"inputs"`
	Outputs json.RawMessage `json:"outputs"`
}

// EpochReport is the published record for one cleared epoch: hashes of
// its inputs and outputs, and the chain tip after folding this epoch in.
type EpochReport struct {
	EpochID    uint64     `json:"epoch_id"`
	InputHash  HashRef    `json:"input_hash"`
	OutputHash HashRef    `json:"output_hash"`
	ChainHash  HashRef    `json:"chain_hash"`
	ReportData ReportData `json:"report_data"`
}

// Reporter publishes a cleared epoch's inputs/outputs as a hashed,
// chained report.
type Reporter interface {
	Publish(epochID uint64, inputs, outputs any) (EpochReport, error)
}

// MemoryReporter is an in-memory Reporter, suitable for tests, demos, and
// as the source of truth before a durable store is wired in.
type MemoryReporter struct {
	chain *chainHasher

	mu      sync.Mutex
	reports []EpochReport
}

// NewMemoryReporter returns a reporter whose chain starts at the genesis
// hash.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{chain: newChainHasher()}
}

// Publish hashes inputs and outputs independently, then folds both
// hashes into the chain under epochID.
func (r *MemoryReporter) Publish(epochID uint64, inputs, outputs any) (EpochReport, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return EpochReport{}, err
	}
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return EpochReport{}, err
	}

	inputHash := computeHash(inputsJSON)
	outputHash := computeHash(outputsJSON)

	digest := make([]byte, 0, len(inputHash)+len(outputHash))
	digest = append(digest, []byte(inputHash)...)
	digest = append(digest, []byte(outputHash)...)
	chainHash := r.chain.next(epochID, digest)

	report := EpochReport{
		EpochID:    epochID,
		InputHash:  inputHash,
		OutputHash: outputHash,
		ChainHash:  HashRef(hex.EncodeToString(chainHash[:])),
		ReportData: ReportData{Inputs: inputsJSON, Outputs: outputsJSON},
	}

	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.mu.Unlock()

	return report, nil
}

// Reports returns every report published so far, oldest first.
func (r *MemoryReporter) Reports() []EpochReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EpochReport, len(r.reports))
	copy(out, r.reports)
	return out
}

// ChainTip returns the current head of the audit chain.
func (r *MemoryReporter) ChainTip() HashRef {
	tip := r.chain.tip()
	return HashRef(hex.EncodeToString(tip[:]))
}
