// Package risk holds the pool's risk parameters: the inventory target
// and penalty weight Γ, the price-tracking penalty weight W, the fill
// incentive weight η, inventory bounds, and the SCP trust-region band.
package risk

import (
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
)

// Params is the per-epoch risk configuration. GammaDiag and WDiag are
// diagonal-only (see DESIGN.md Open Question 3): a full covariance-style
// Hessian block is never populated by any constructor here, mirroring the
// original's gamma_diag-only presets, but the clearing package's QP
// Hessian accepts any symmetric PSD block so a dense Γ remains possible.
type Params struct {
	// QTarget is the desired post-clear inventory, one entry per asset,
	// in each asset's own units.
	QTarget []float64
	// GammaDiag is the inventory-risk penalty weight, one entry per asset.
	// Presets populate this with a uniform base weight; NormalizeGamma
	// must be applied against the epoch's reference prices before the
	// weight is USD-notional comparable across assets (spec §4.5).
	GammaDiag []float64
	// WDiag is the price-tracking penalty weight, one entry per asset
	// (including the USD numeraire, where it is typically unused since
	// y_USD is pinned to zero by an equality constraint).
	WDiag []float64
	// Eta is the fill-incentive weight: larger eta rewards filling more
	// of the committed order flow.
	Eta float64
	// QMin/QMax bound post-clear inventory per asset, in each asset's own
	// units.
	QMin []float64
	QMax []float64
	// PriceBandBps is a log-price band half-width in basis points. The SCP
	// driver does not read it: its trust-region widths come from
	// clearing.ScpParams.
	PriceBandBps float64
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// UltraLowSlippage favors tight price tracking over fill volume.
func UltraLowSlippage(n int) Params {
	return Params{
		QTarget:      make([]float64, n),
		GammaDiag:    uniform(n, 0.5),
		WDiag:        uniform(n, 200),
		Eta:          1.0,
		QMin:         uniform(n, -1e12),
		QMax:         uniform(n, 1e12),
		PriceBandBps: 25,
	}
}

// LowSlippage is the conservative default: high price-tracking weight,
// low fill incentive.
func LowSlippage(n int) Params {
	return Params{
		QTarget:      make([]float64, n),
		GammaDiag:    uniform(n, 0.1),
		WDiag:        uniform(n, 1000),
		Eta:          0.5,
		QMin:         uniform(n, -1e12),
		QMax:         uniform(n, 1e12),
		PriceBandBps: 30,
	}
}

// FillFriendly favors filling orders over minimizing price movement.
func FillFriendly(n int) Params {
	return Params{
		QTarget:      make([]float64, n),
		GammaDiag:    uniform(n, 2.0),
		WDiag:        uniform(n, 200),
		Eta:          2.0,
		QMin:         uniform(n, -1e12),
		QMax:         uniform(n, 1e12),
		PriceBandBps: 50,
	}
}

// DefaultDemo is the preset used by demos and the default test fixture.
func DefaultDemo(n int) Params {
	return Params{
		QTarget:      make([]float64, n),
		GammaDiag:    uniform(n, 0.1),
		WDiag:        uniform(n, 1000),
		Eta:          1.0,
		QMin:         uniform(n, -1e12),
		QMax:         uniform(n, 1e12),
		PriceBandBps: 50,
	}
}

// NormalizeGamma scales each asset's GammaDiag entry by its reference
// linear price exp(y_ref), so a unit of inventory imbalance carries equal
// USD value across assets regardless of the asset's own price scale — the
// concrete scenario's Γ = 1e-3·diag([1, 0.90, 0.0065]) against
// y_ref = (0, ln 0.90, ln 0.0065) is exactly this normalization applied to
// a uniform base weight of 1e-3. The receiver's GammaDiag is treated as
// the unnormalized base weight; calling this twice would double-scale, so
// it must run once per epoch against that epoch's own reference prices,
// not once at preset-construction time.
func (p Params) NormalizeGamma(refs oracle.RefPrices) Params {
	out := p
	out.GammaDiag = make([]float64, len(p.GammaDiag))
	for i, a := range asset.All {
		out.GammaDiag[i] = p.GammaDiag[i] * math.Exp(refs.Get(a))
	}
	return out
}

// Target returns the inventory target for asset index i.
func (p Params) Target(i int) float64 { return p.QTarget[i] }

// MinBound returns the minimum inventory bound for asset index i.
func (p Params) MinBound(i int) float64 { return p.QMin[i] }

// MaxBound returns the maximum inventory bound for asset index i.
func (p Params) MaxBound(i int) float64 { return p.QMax[i] }

// IsWithinBounds reports whether q (one entry per asset) respects QMin/QMax.
func (p Params) IsWithinBounds(q []float64) bool {
	for i, v := range q {
		if v < p.QMin[i] || v > p.QMax[i] {
			return false
		}
	}
	return true
}

// InventoryPenalty computes 0.5 * (q - qTarget)^T Gamma (q - qTarget) with
// Gamma diagonal.
func (p Params) InventoryPenalty(q []float64) float64 {
	sum := 0.0
	for i, v := range q {
		d := v - p.QTarget[i]
		sum += p.GammaDiag[i] * d * d
	}
	return 0.5 * sum
}

// TrackingPenalty computes 0.5 * (y - yRef)^T W (y - yRef) with W diagonal.
func (p Params) TrackingPenalty(y, yRef []float64) float64 {
	sum := 0.0
	for i, v := range y {
		d := v - yRef[i]
		sum += p.WDiag[i] * d * d
	}
	return 0.5 * sum
}
