package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. Monetary values are stored as NUMERIC for exact decimal
// precision; report/snapshot payloads are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveEpochReport(ctx context.Context, report reporter.EpochReport) error {
	reportData, err := json.Marshal(report.ReportData)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO epoch_reports (epoch_id, input_hash, output_hash, chain_hash, report_data)
		 VALUES ($1, $2, $3, $4, $5::JSONB)
		 ON CONFLICT (epoch_id) DO UPDATE SET
		   input_hash = EXCLUDED.input_hash,
		   output_hash = EXCLUDED.output_hash,
		   chain_hash = EXCLUDED.chain_hash,
		   report_data = EXCLUDED.report_data`,
		report.EpochID, string(report.InputHash), string(report.OutputHash), string(report.ChainHash), reportData,
	)
	return err
}

func (s *PostgresStore) GetEpochReport(ctx context.Context, epochID uint64) (*reporter.EpochReport, error) {
	var report reporter.EpochReport
	var inputHash, outputHash, chainHash string
	var reportData []byte

	err := s.pool.QueryRow(ctx,
		`SELECT epoch_id, input_hash, output_hash, chain_hash, report_data
		 FROM epoch_reports WHERE epoch_id = $1`, epochID).
		Scan(&report.EpochID, &inputHash, &outputHash, &chainHash, &reportData)
	if err != nil {
		return nil, fmt.Errorf("get epoch report %d: %w", epochID, err)
	}

	report.InputHash = reporter.HashRef(inputHash)
	report.OutputHash = reporter.HashRef(outputHash)
	report.ChainHash = reporter.HashRef(chainHash)
	if err := json.Unmarshal(reportData, &report.ReportData); err != nil {
		return nil, fmt.Errorf("unmarshal report data for epoch %d: %w", epochID, err)
	}
	return &report, nil
}

func (s *PostgresStore) ListEpochReports(ctx context.Context, limit int) ([]reporter.EpochReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT epoch_id, input_hash, output_hash, chain_hash, report_data
		 FROM epoch_reports ORDER BY epoch_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []reporter.EpochReport
	for rows.Next() {
		var report reporter.EpochReport
		var inputHash, outputHash, chainHash string
		var reportData []byte

		if err := rows.Scan(&report.EpochID, &inputHash, &outputHash, &chainHash, &reportData); err != nil {
			return nil, err
		}
		report.InputHash = reporter.HashRef(inputHash)
		report.OutputHash = reporter.HashRef(outputHash)
		report.ChainHash = reporter.HashRef(chainHash)
		if err := json.Unmarshal(reportData, &report.ReportData); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) InsertLedgerEntry(ctx context.Context, e ledger.Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_entries
		   (id, epoch_id, order_id, trader_account, pay_asset, receive_asset,
		    pay_amount, receive_amount, fill_fraction, fee, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11)`,
		e.ID, e.EpochID, e.OrderID, string(e.TraderAccount), e.PayAsset.String(), e.ReceiveAsset.String(),
		e.PayAmount.String(), e.ReceiveAmount.String(), e.FillFraction.String(), e.Fee.String(),
		e.Timestamp,
	)
	return err
}

func (s *PostgresStore) GetLedgerEntriesByEpoch(ctx context.Context, epochID uint64) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, epoch_id, order_id, trader_account, pay_asset, receive_asset,
		        pay_amount::TEXT, receive_amount::TEXT, fill_fraction::TEXT, fee::TEXT, timestamp
		 FROM ledger_entries WHERE epoch_id = $1 ORDER BY timestamp`, epochID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func (s *PostgresStore) GetLedgerEntriesByAccount(ctx context.Context, account ledger.AccountId) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, epoch_id, order_id, trader_account, pay_asset, receive_asset,
		        pay_amount::TEXT, receive_amount::TEXT, fill_fraction::TEXT, fee::TEXT, timestamp
		 FROM ledger_entries WHERE trader_account = $1 ORDER BY timestamp`, string(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func (s *PostgresStore) SaveInventorySnapshot(ctx context.Context, snap ledger.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal inventory snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO inventory_snapshots (taken_at, accounts) VALUES (now(), $1::JSONB)`, data)
	return err
}

func (s *PostgresStore) GetLatestInventorySnapshot(ctx context.Context) (ledger.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT accounts FROM inventory_snapshots ORDER BY taken_at DESC LIMIT 1`).Scan(&data)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("get latest inventory snapshot: %w", err)
	}
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("unmarshal inventory snapshot: %w", err)
	}
	return snap, nil
}

// pgxRows abstracts pgx.Rows for scanLedgerEntries.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanLedgerEntries(rows pgxRows) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var traderAccount, payAssetCode, receiveAssetCode string
		var payAmountS, receiveAmountS, fillFractionS, feeS string

		if err := rows.Scan(&e.ID, &e.EpochID, &e.OrderID, &traderAccount, &payAssetCode, &receiveAssetCode,
			&payAmountS, &receiveAmountS, &fillFractionS, &feeS, &e.Timestamp); err != nil {
			return nil, err
		}

		payAsset, err := asset.FromString(payAssetCode)
		if err != nil {
			return nil, err
		}
		receiveAsset, err := asset.FromString(receiveAssetCode)
		if err != nil {
			return nil, err
		}

		e.TraderAccount = ledger.AccountId(traderAccount)
		e.PayAsset = payAsset
		e.ReceiveAsset = receiveAsset
		e.PayAmount, _ = decimal.NewFromString(payAmountS)
		e.ReceiveAmount, _ = decimal.NewFromString(receiveAmountS)
		e.FillFraction, _ = decimal.NewFromString(fillFractionS)
		e.Fee, _ = decimal.NewFromString(feeS)

		entries = append(entries, e)
	}
	return entries, nil
}
