package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and then update the
// cache: saved epoch reports and inventory snapshots are written into it
// (saving a report also drops the cached latest snapshot), and an inserted
// ledger entry deletes its ledger keys. Reads check Redis first then fall
// back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

// --- Write-through (write to primary, then update cache) ---

func (s *CachedStore) SaveEpochReport(ctx context.Context, report reporter.EpochReport) error {
	if err := s.primary.SaveEpochReport(ctx, report); err != nil {
		return err
	}
	s.cacheEpochReport(ctx, report)
	s.rdb.Del(ctx, latestSnapshotKey())
	return nil
}

func (s *CachedStore) InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error {
	if err := s.primary.InsertLedgerEntry(ctx, entry); err != nil {
		return err
	}
	s.rdb.Del(ctx, ledgerByEpochKey(entry.EpochID))
	s.rdb.Del(ctx, ledgerByAccountKey(entry.TraderAccount))
	return nil
}

func (s *CachedStore) SaveInventorySnapshot(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.primary.SaveInventorySnapshot(ctx, snap); err != nil {
		return err
	}
	if data, err := json.Marshal(snap); err == nil {
		s.rdb.Set(ctx, latestSnapshotKey(), data, s.ttl)
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetEpochReport(ctx context.Context, epochID uint64) (*reporter.EpochReport, error) {
	data, err := s.rdb.Get(ctx, epochReportKey(epochID)).Bytes()
	if err == nil {
		var report reporter.EpochReport
		if json.Unmarshal(data, &report) == nil {
			return &report, nil
		}
	}

	report, err := s.primary.GetEpochReport(ctx, epochID)
	if err != nil {
		return nil, err
	}
	s.cacheEpochReport(ctx, *report)
	return report, nil
}

func (s *CachedStore) GetLatestInventorySnapshot(ctx context.Context) (ledger.Snapshot, error) {
	data, err := s.rdb.Get(ctx, latestSnapshotKey()).Bytes()
	if err == nil {
		var snap ledger.Snapshot
		if json.Unmarshal(data, &snap) == nil {
			return snap, nil
		}
	}

	snap, err := s.primary.GetLatestInventorySnapshot(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if data, err := json.Marshal(snap); err == nil {
		s.rdb.Set(ctx, latestSnapshotKey(), data, s.ttl)
	}
	return snap, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListEpochReports(ctx context.Context, limit int) ([]reporter.EpochReport, error) {
	return s.primary.ListEpochReports(ctx, limit)
}

func (s *CachedStore) GetLedgerEntriesByEpoch(ctx context.Context, epochID uint64) ([]ledger.Entry, error) {
	return s.primary.GetLedgerEntriesByEpoch(ctx, epochID)
}

func (s *CachedStore) GetLedgerEntriesByAccount(ctx context.Context, account ledger.AccountId) ([]ledger.Entry, error) {
	return s.primary.GetLedgerEntriesByAccount(ctx, account)
}

// --- Cache helpers ---

func (s *CachedStore) cacheEpochReport(ctx context.Context, report reporter.EpochReport) {
	if data, err := json.Marshal(report); err == nil {
		s.rdb.Set(ctx, epochReportKey(report.EpochID), data, s.ttl)
	}
}

func epochReportKey(epochID uint64) string          { return fmt.Sprintf("epoch_report:%d", epochID) }
func ledgerByEpochKey(epochID uint64) string        { return fmt.Sprintf("ledger:epoch:%d", epochID) }
func ledgerByAccountKey(a ledger.AccountId) string  { return fmt.Sprintf("ledger:account:%s", a) }
func latestSnapshotKey() string                     { return "inventory:latest" }
