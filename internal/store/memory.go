package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	reports  map[uint64]reporter.EpochReport
	entries  []ledger.Entry
	snapshot *ledger.Snapshot
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[uint64]reporter.EpochReport)}
}

func (s *MemoryStore) SaveEpochReport(_ context.Context, report reporter.EpochReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.EpochID] = report
	return nil
}

func (s *MemoryStore) GetEpochReport(_ context.Context, epochID uint64) (*reporter.EpochReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[epochID]
	if !ok {
		return nil, fmt.Errorf("epoch report %d not found", epochID)
	}
	return &report, nil
}

func (s *MemoryStore) ListEpochReports(_ context.Context, limit int) ([]reporter.EpochReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]reporter.EpochReport, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpochID > out[j].EpochID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InsertLedgerEntry(_ context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) GetLedgerEntriesByEpoch(_ context.Context, epochID uint64) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Entry
	for _, e := range s.entries {
		if e.EpochID == epochID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetLedgerEntriesByAccount(_ context.Context, account ledger.AccountId) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Entry
	for _, e := range s.entries {
		if e.TraderAccount == account {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) SaveInventorySnapshot(_ context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snap
	return nil
}

func (s *MemoryStore) GetLatestInventorySnapshot(_ context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return ledger.Snapshot{Accounts: map[ledger.AccountId]ledger.Inventory{}}, nil
	}
	return *s.snapshot, nil
}
