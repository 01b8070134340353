package clearing

import (
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// applyMinFillRepair drops (rather than partially honors) any order whose
// solved fill fraction falls below its declared minimum, per DESIGN.md's
// "drop" resolution of the min-fill-below-threshold open question: traders
// who asked for all-or-nothing-above-a-floor should never see a sliver
// fill they explicitly said they didn't want.
func applyMinFillRepair(inst EpochInstance, alpha []float64) []float64 {
	out := append([]float64(nil), alpha...)
	for i, o := range inst.Orders {
		if min := o.MinFill(); min > 0 && out[i] < min {
			out[i] = 0
		}
	}
	return out
}

// computeFillsAndInventory reconstructs per-order pay/receive amounts and
// the resulting pool inventory from a solved (y, alpha) iterate, using the
// pool-accounting convention: the pool's pay-asset inventory increases by
// what the taker pays in, and its receive-asset inventory decreases by
// what it pays out. Fills below fillAmountFloor are treated as zero to
// avoid reporting dust the ledger would have to account for at no
// economic benefit.
func computeFillsAndInventory(inst EpochInstance, y, alpha []float64) ([]Fill, []float64) {
	inventory := append([]float64(nil), inst.InventoryQ...)
	fills := make([]Fill, len(inst.Orders))

	for idx, o := range inst.Orders {
		pay := o.Pay.Index()
		recv := o.Receive.Index()
		beta := math.Exp(y[pay] - y[recv])
		a := alpha[idx]
		budget := o.Budget.Float64()

		if a*budget < fillAmountFloor {
			fills[idx] = Fill{OrderID: o.ID, Alpha: 0, PayAmount: amount.Zero, ReceiveAmount: amount.Zero}
			continue
		}

		payAmount, err := o.Budget.MulFloat64(a)
		if err != nil {
			payAmount = amount.Zero
		}
		receiveAmount, err := payAmount.MulFloat64(beta)
		if err != nil {
			receiveAmount = amount.Zero
		}

		inventory[pay] += payAmount.Float64()
		inventory[recv] -= receiveAmount.Float64()

		fills[idx] = Fill{
			OrderID:       o.ID,
			Alpha:         a,
			PayAmount:     payAmount,
			ReceiveAmount: receiveAmount,
		}
	}

	return fills, inventory
}

// computeObjectiveTerms evaluates the three components of the clearing
// objective at a final (y, alpha) iterate.
//
// The fill-incentive term is computed here as
// -eta * sum_k alpha_k * budget_k * beta_k(y), the actual gradient-bearing
// quantity from the objective's -eta*sum term evaluated at the final y.
// The source this package is grounded on left this term a placeholder
// that multiplied a pay amount by an asset's integer tag; that formula is
// not used here.
func computeObjectiveTerms(inst EpochInstance, y, alpha, inventoryPost []float64) ObjectiveTerms {
	fillIncentive := 0.0
	for idx, o := range inst.Orders {
		pay := o.Pay.Index()
		recv := o.Receive.Index()
		beta := math.Exp(y[pay] - y[recv])
		budget := o.Budget.Float64()
		fillIncentive += alpha[idx] * budget * beta
	}
	fillIncentive *= -inst.Risk.Eta

	yRef := make([]float64, asset.N)
	for i, a := range asset.All {
		yRef[i] = inst.RefPrices.Get(a)
	}

	inventoryPenalty := inst.Risk.InventoryPenalty(inventoryPost)
	trackingPenalty := inst.Risk.TrackingPenalty(y, yRef)

	return ObjectiveTerms{
		InventoryPenalty: inventoryPenalty,
		TrackingPenalty:  trackingPenalty,
		FillIncentive:    fillIncentive,
		Total:            inventoryPenalty + trackingPenalty + fillIncentive,
	}
}
