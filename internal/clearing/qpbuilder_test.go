package clearing

import (
	"math"
	"testing"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
	"github.com/OleSpjeldnas/ConvexFX/internal/order"
	"github.com/OleSpjeldnas/ConvexFX/internal/risk"
)

func instanceWithBounds(qMin, qMax []float64) EpochInstance {
	refs, _ := oracle.NewMock().CurrentPrices()
	r := risk.DefaultDemo(asset.N).NormalizeGamma(refs)
	r.QMin = qMin
	r.QMax = qMax
	return EpochInstance{
		EpochID:    1,
		Orders:     nil,
		InventoryQ: make([]float64, asset.N),
		RefPrices:  refs,
		Risk:       r,
	}
}

// TestGhostInventoryGradientGrowsNearBound verifies the smooth barrier's
// magnitude increases sharply as the current iterate approaches QMax, and
// is negligible when inventory sits mid-range — a bare box constraint
// would give zero gradient either way until the row is hit.
func TestGhostInventoryGradientGrowsNearBound(t *testing.T) {
	qMin := []float64{-1e6, -1e6, -1e6, -1e6, -1e6, -1e6}
	qMax := []float64{1e6, 1e6, 1e6, 1e6, 1e6, 1e6}
	eurIdx := asset.EUR.Index()

	// A jac whose dQdY is the identity isolates ghostInventoryGradient's
	// own math from buildInventoryJacobian's order-driven chain rule: the
	// resulting gY is exactly the barrier's own per-asset gradient.
	identityJac := func(qHat []float64) inventoryJacobian {
		dQdY := make([][]float64, asset.N)
		for i := range dQdY {
			dQdY[i] = make([]float64, asset.N)
			dQdY[i][i] = 1.0
		}
		return inventoryJacobian{qHat: qHat, dQdY: dQdY, dQdA: make([][]float64, asset.N)}
	}

	midQ := make([]float64, asset.N)
	midQ[eurIdx] = 0
	nearQ := make([]float64, asset.N)
	nearQ[eurIdx] = 1e6 - 1e3 // 0.1% from the upper bound

	midInst := instanceWithBounds(qMin, qMax)
	nearInst := instanceWithBounds(qMin, qMax)

	gYMid, _ := ghostInventoryGradient(midInst, identityJac(midQ))
	gYNear, _ := ghostInventoryGradient(nearInst, identityJac(nearQ))

	if math.Abs(gYMid[eurIdx]) > 1e-9 {
		t.Errorf("expected ~zero ghost gradient mid-range, got %v", gYMid[eurIdx])
	}
	if math.Abs(gYNear[eurIdx]) <= math.Abs(gYMid[eurIdx]) {
		t.Errorf("expected ghost gradient near the bound (%v) to dominate the mid-range one (%v)", gYNear[eurIdx], gYMid[eurIdx])
	}
	if gYNear[eurIdx] <= 0 {
		t.Errorf("expected a positive (cost-increasing) gradient pushing inventory back down from the upper bound, got %v", gYNear[eurIdx])
	}
}

// TestBuildWithTightBoundsStaysFeasible checks that adding the ghost
// inventory term to Build's linear term does not break feasibility of the
// resulting QP model (bounds/rows unaffected, only Q changes).
func TestBuildWithTightBoundsStaysFeasible(t *testing.T) {
	inst := instanceWithBounds([]float64{-1e4, -1e4, -1e4, -1e4, -1e4, -1e4}, []float64{1e4, 1e4, 1e4, 1e4, 1e4, 1e4})
	inst.Orders = []order.Pair{
		{ID: "o1", Trader: "t1", Pay: asset.USD, Receive: asset.EUR, Budget: unitsAmount(1000)},
	}
	y := inst.RefPrices.Vector()
	alpha := []float64{0.5}

	model, err := Build(inst, y, alpha, 25)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if model.Q.Len() != asset.N+len(inst.Orders) {
		t.Fatalf("unexpected Q length %d", model.Q.Len())
	}
	for i := 0; i < model.Q.Len(); i++ {
		if math.IsNaN(model.Q.AtVec(i)) || math.IsInf(model.Q.AtVec(i), 0) {
			t.Errorf("Q[%d] is not finite: %v", i, model.Q.AtVec(i))
		}
	}
}
