package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// Entry is an immutable record of one order's clearing outcome. Once
// created these are never modified or deleted, mirroring the teacher's
// model.LedgerEntry.
type Entry struct {
	ID            string          `json:"id" db:"id"`
	EpochID       uint64          `json:"epoch_id" db:"epoch_id"`
	OrderID       string          `json:"order_id" db:"order_id"`
	TraderAccount AccountId       `json:"trader_account" db:"trader_account"`
	PayAsset      asset.Id        `json:"pay_asset" db:"pay_asset"`
	ReceiveAsset  asset.Id        `json:"receive_asset" db:"receive_asset"`
	PayAmount     decimal.Decimal `json:"pay_amount" db:"pay_amount"`
	ReceiveAmount decimal.Decimal `json:"receive_amount" db:"receive_amount"`
	FillFraction  decimal.Decimal `json:"fill_fraction" db:"fill_fraction"`
	// Fee is reserved for a future fee assessor; fee assessment after
	// clearing is out of scope here, so this is always zero.
	Fee       decimal.Decimal `json:"fee" db:"fee"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// toDecimal renders a fixed-point Amount as a shopspring/decimal.Decimal
// for JSON/DB presentation, exactly as the teacher's model layer never
// lets a float64 carry money across that boundary.
func toDecimal(a amount.Amount) decimal.Decimal {
	return decimal.NewFromBigInt(a.Raw(), -9)
}
