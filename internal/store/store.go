// Package store defines the persistence interface for the market engine.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing), adapted from the
// teacher's store package to the epoch-report / ledger-entry domain.
package store

import (
	"context"

	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Epoch reports (audit trail) ---

	// SaveEpochReport persists a cleared epoch's hashed report.
	SaveEpochReport(ctx context.Context, report reporter.EpochReport) error

	// GetEpochReport retrieves a report by epoch ID.
	GetEpochReport(ctx context.Context, epochID uint64) (*reporter.EpochReport, error)

	// ListEpochReports returns the most recent reports, newest first,
	// bounded by limit.
	ListEpochReports(ctx context.Context, limit int) ([]reporter.EpochReport, error)

	// --- Immutable ledger ---

	// InsertLedgerEntry appends an immutable trade record.
	InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error

	// GetLedgerEntriesByEpoch returns all entries recorded for an epoch.
	GetLedgerEntriesByEpoch(ctx context.Context, epochID uint64) ([]ledger.Entry, error)

	// GetLedgerEntriesByAccount returns all entries for a trader account.
	GetLedgerEntriesByAccount(ctx context.Context, account ledger.AccountId) ([]ledger.Entry, error)

	// --- Inventory checkpoints ---

	// SaveInventorySnapshot persists a point-in-time ledger snapshot, for
	// crash recovery.
	SaveInventorySnapshot(ctx context.Context, snap ledger.Snapshot) error

	// GetLatestInventorySnapshot returns the most recently saved snapshot.
	GetLatestInventorySnapshot(ctx context.Context) (ledger.Snapshot, error)
}
