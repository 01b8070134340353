package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
)

// ApplyFills transfers every non-zero fill in a cleared epoch's solution
// between each trader's account and the pool account, and returns one
// immutable Entry per fill for audit/reporting.
//
// Fee assessment after clearing is an explicit non-goal; every entry's
// Fee field is zero, reserved for a future assessor.
func ApplyFills(l Ledger, poolAccount AccountId, inst clearing.EpochInstance, sol clearing.EpochSolution, now time.Time) ([]Entry, error) {
	ordersByID := make(map[string]int, len(inst.Orders))
	for i, o := range inst.Orders {
		ordersByID[o.ID] = i
	}

	entries := make([]Entry, 0, len(sol.Fills))
	for _, fill := range sol.Fills {
		if fill.Alpha <= 0 || fill.PayAmount.IsZero() {
			continue
		}
		idx, ok := ordersByID[fill.OrderID]
		if !ok {
			return entries, fmt.Errorf("ledger: fill references unknown order %q", fill.OrderID)
		}
		o := inst.Orders[idx]
		trader := AccountId(o.Trader)

		if err := l.Transfer(trader, poolAccount, o.Pay, fill.PayAmount); err != nil {
			return entries, fmt.Errorf("ledger: pay leg for order %s: %w", o.ID, err)
		}
		if err := l.Transfer(poolAccount, trader, o.Receive, fill.ReceiveAmount); err != nil {
			return entries, fmt.Errorf("ledger: receive leg for order %s: %w", o.ID, err)
		}

		entries = append(entries, Entry{
			ID:            fmt.Sprintf("%d-%s", sol.EpochID, o.ID),
			EpochID:       sol.EpochID,
			OrderID:       o.ID,
			TraderAccount: trader,
			PayAsset:      o.Pay,
			ReceiveAsset:  o.Receive,
			PayAmount:     toDecimal(fill.PayAmount),
			ReceiveAmount: toDecimal(fill.ReceiveAmount),
			FillFraction:  decimal.NewFromFloat(fill.Alpha),
			Fee:           decimal.Zero,
			Timestamp:     now,
		})
	}
	return entries, nil
}
