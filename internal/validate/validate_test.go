package validate

import (
	"strings"
	"testing"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
	"github.com/OleSpjeldnas/ConvexFX/internal/order"
	"github.com/OleSpjeldnas/ConvexFX/internal/risk"
)

func testSolution() (clearing.EpochSolution, clearing.EpochInstance) {
	refs, _ := oracle.NewMock().CurrentPrices()
	inst := clearing.EpochInstance{
		EpochID:    1,
		Orders:     nil,
		InventoryQ: make([]float64, asset.N),
		RefPrices:  refs,
		Risk:       risk.DefaultDemo(asset.N).NormalizeGamma(refs),
	}
	y := make([]float64, asset.N)
	sol := clearing.EpochSolution{
		EpochID:       1,
		Y:             y,
		InventoryPost: make([]float64, asset.N),
		Objective: clearing.ObjectiveTerms{
			InventoryPenalty: 100.0,
			TrackingPenalty:  50.0,
			FillIncentive:    -20.0,
			Total:            130.0,
		},
		Diagnostics: clearing.Diagnostics{
			Iterations:      3,
			FinalDeltaY:     1e-6,
			FinalDeltaAlpha: 1e-7,
		},
	}
	return sol, inst
}

func TestConvergenceSuccess(t *testing.T) {
	sol, inst := testSolution()
	if errs := CheckConvergence(sol, inst, DefaultParams()); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestConvergenceYToleranceExceeded(t *testing.T) {
	sol, inst := testSolution()
	sol.Diagnostics.FinalDeltaY = 1e-2
	errs := CheckConvergence(sol, inst, DefaultParams())
	if len(errs) == 0 {
		t.Fatalf("expected a violation")
	}
	if !strings.Contains(errs[0].Message, "price step norm") {
		t.Fatalf("unexpected message: %s", errs[0].Message)
	}
}

func TestPriceConsistencyUSDNumeraire(t *testing.T) {
	sol, inst := testSolution()
	sol.Y[asset.USD.Index()] = 0.1
	errs := CheckPriceConsistency(sol, inst, DefaultParams())
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "USD numeraire") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a USD numeraire violation, got %v", errs)
	}
}

func TestFillFeasibilitySuccess(t *testing.T) {
	sol, inst := testSolution()
	sol.Fills = []clearing.Fill{{
		OrderID:       "test1",
		Alpha:         0.8,
		PayAmount:     amount.FromUnits(1000),
		ReceiveAmount: amount.FromUnits(860),
	}}
	if errs := CheckFillFeasibility(sol, inst, DefaultParams()); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestFillFeasibilityInvalidFraction(t *testing.T) {
	sol, inst := testSolution()
	sol.Fills = []clearing.Fill{{
		OrderID:       "test1",
		Alpha:         1.5,
		PayAmount:     amount.FromUnits(1000),
		ReceiveAmount: amount.FromUnits(860),
	}}
	errs := CheckFillFeasibility(sol, inst, DefaultParams())
	if len(errs) == 0 || !strings.Contains(errs[0].Message, "out of [0,1]") {
		t.Fatalf("expected an out-of-range violation, got %v", errs)
	}
}

func TestInventoryConservationSuccess(t *testing.T) {
	sol, inst := testSolution()
	for i := range inst.InventoryQ {
		inst.InventoryQ[i] = 10000.0
	}
	inst.Orders = []order.Pair{{
		ID: "test1", Trader: "t", Pay: asset.USD, Receive: asset.EUR, Budget: amount.FromUnits(1000),
	}}
	sol.Fills = []clearing.Fill{{
		OrderID:       "test1",
		Alpha:         1.0,
		PayAmount:     amount.FromUnits(1000),
		ReceiveAmount: amount.FromUnits(860),
	}}
	sol.InventoryPost = append([]float64(nil), inst.InventoryQ...)
	sol.InventoryPost[asset.USD.Index()] = 11000.0
	sol.InventoryPost[asset.EUR.Index()] = 9140.0

	if errs := CheckInventoryConservation(sol, inst, DefaultParams()); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestInventoryConservationViolation(t *testing.T) {
	sol, inst := testSolution()
	inst.Orders = []order.Pair{{
		ID: "test1", Trader: "t", Pay: asset.USD, Receive: asset.EUR, Budget: amount.FromUnits(1000),
	}}
	sol.Fills = []clearing.Fill{{
		OrderID:       "test1",
		Alpha:         1.0,
		PayAmount:     amount.FromUnits(1000),
		ReceiveAmount: amount.FromUnits(860),
	}}
	// InventoryPost left at zero: does not reflect the fill's net flow.
	errs := CheckInventoryConservation(sol, inst, DefaultParams())
	if len(errs) == 0 {
		t.Fatalf("expected an inventory conservation violation")
	}
}

func TestObjectiveOptimalitySuccess(t *testing.T) {
	sol, inst := testSolution()
	if errs := CheckObjectiveOptimality(sol, inst, DefaultParams()); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestObjectiveOptimalityComponentMismatch(t *testing.T) {
	sol, inst := testSolution()
	sol.Objective.Total = 999.0
	errs := CheckObjectiveOptimality(sol, inst, DefaultParams())
	if len(errs) == 0 || !strings.Contains(errs[0].Message, "don't sum correctly") {
		t.Fatalf("expected a component-mismatch violation, got %v", errs)
	}
}

func TestCheckAllAggregatesAcrossPredicates(t *testing.T) {
	sol, inst := testSolution()
	sol.Diagnostics.FinalDeltaY = 1e-2
	sol.Y[asset.USD.Index()] = 0.1
	errs := CheckAll(sol, inst, DefaultParams())
	if len(errs) < 2 {
		t.Fatalf("expected violations from at least two predicates, got %v", errs)
	}
}
