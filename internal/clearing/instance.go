package clearing

import (
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
	"github.com/OleSpjeldnas/ConvexFX/internal/order"
	"github.com/OleSpjeldnas/ConvexFX/internal/risk"
)

// EpochInstance is everything the SCP driver needs to clear one epoch: the
// frozen (post-reveal) order set, the pool's current inventory, the oracle's
// reference prices, and the risk configuration governing the objective.
type EpochInstance struct {
	EpochID uint64
	Orders  []order.Pair

	// InventoryQ is the pool's pre-clear inventory, in each asset's own
	// units, one entry per asset in asset.All order. This is q^0 in the objective.
	InventoryQ []float64

	RefPrices oracle.RefPrices
	Risk      risk.Params
}

// Fill is one order's clearing outcome: the fraction of its budget filled
// and the resulting pay/receive amounts at the final cross-rate.
type Fill struct {
	OrderID     string
	Alpha       float64
	PayAmount   amount.Amount
	ReceiveAmount amount.Amount
}

// ObjectiveTerms decomposes the final objective value into its three
// components, for diagnostics and the validate package's P5 check.
type ObjectiveTerms struct {
	InventoryPenalty float64
	TrackingPenalty  float64
	FillIncentive    float64
	Total            float64
}

// Diagnostics records the SCP driver's trajectory for observability and for
// DidNotConverge errors to carry useful context.
type Diagnostics struct {
	Iterations      int
	FinalDeltaY     float64 // ||Δy·s||_inf at the last iteration
	FinalDeltaAlpha float64 // ||Δα·s||_inf at the last iteration
	FinalTrustBps   float64
	BackendIters    []int
	LineSearchSteps []float64
}

// EpochSolution is the clearing engine's output: the cleared log-prices,
// per-order fills, resulting inventory, and enough bookkeeping for the
// validate package's local-law checks and for reporting/audit.
type EpochSolution struct {
	EpochID uint64

	// Y is the cleared log-price vector, one entry per asset in asset.All
	// order, with Y[asset.USD.Index()] == 0.
	Y []float64

	Fills []Fill

	// InventoryPost is the pool's post-clear inventory, in each asset's own
	// units.
	InventoryPost []float64

	Objective   ObjectiveTerms
	Diagnostics Diagnostics
}

// Price returns the cleared linear spot price p* = exp(y*) for an asset.
func (s EpochSolution) Price(a asset.Id) float64 {
	i := a.Index()
	if i < 0 || i >= len(s.Y) {
		return 0
	}
	return math.Exp(s.Y[i])
}
