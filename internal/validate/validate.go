// Package validate implements the clearing engine's local-law predicates:
// checks a solution must satisfy independent of which SCP iteration
// produced it, run downstream of a successful clearing.Driver.Clear call
// (e.g. before a solution is proven and submitted to a settlement layer).
//
// This package depends on clearing for the types it inspects; clearing
// must never depend back on validate.
package validate

import (
	"fmt"
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
)

// PredicateKind names which of the five local-law checks failed.
type PredicateKind int

const (
	PredicateConvergence PredicateKind = iota
	PredicatePriceConsistency
	PredicateFillFeasibility
	PredicateInventoryConservation
	PredicateObjectiveOptimality
)

func (k PredicateKind) String() string {
	switch k {
	case PredicateConvergence:
		return "Convergence"
	case PredicatePriceConsistency:
		return "PriceConsistency"
	case PredicateFillFeasibility:
		return "FillFeasibility"
	case PredicateInventoryConservation:
		return "InventoryConservation"
	case PredicateObjectiveOptimality:
		return "ObjectiveOptimality"
	default:
		return fmt.Sprintf("PredicateKind(%d)", int(k))
	}
}

// Error is a single local-law violation.
type Error struct {
	Kind    PredicateKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Kind, e.Message)
}

// Params carries the five predicates' tolerances.
type Params struct {
	ToleranceY         float64
	ToleranceAlpha     float64
	MaxPriceDeviation  float64
	InventoryTolerance float64
	FillAmountFloor    float64
}

// DefaultParams mirrors the SCP driver's own recommended tolerances
// (see clearing.DefaultScpParams) plus business-level bands for price
// deviation and inventory conservation.
func DefaultParams() Params {
	return Params{
		ToleranceY:         1e-4,
		ToleranceAlpha:     1e-5,
		MaxPriceDeviation:  0.01,
		InventoryTolerance: 1e-4,
		FillAmountFloor:    1e-8,
	}
}

// CheckAll runs every predicate and returns every violation found, nil if
// the solution is locally valid.
func CheckAll(sol clearing.EpochSolution, inst clearing.EpochInstance, params Params) []*Error {
	var errs []*Error
	checks := []func(clearing.EpochSolution, clearing.EpochInstance, Params) []*Error{
		CheckConvergence,
		CheckPriceConsistency,
		CheckFillFeasibility,
		CheckInventoryConservation,
		CheckObjectiveOptimality,
	}
	for _, check := range checks {
		errs = append(errs, check(sol, inst, params)...)
	}
	return errs
}

// Validate runs every predicate and returns the first violation, or nil.
// Prefer CheckAll when every violation (not just the first) matters.
func Validate(sol clearing.EpochSolution, inst clearing.EpochInstance, params Params) error {
	if errs := CheckAll(sol, inst, params); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CheckConvergence (P1) verifies the SCP driver's final step norms are
// within tolerance. A clearing.EpochSolution returned from Clear already
// implies convergence (Clear returns DidNotConverge otherwise), so this
// predicate is mainly useful when re-validating a solution recovered from
// a DidNotConverge error's Partial field.
func CheckConvergence(sol clearing.EpochSolution, _ clearing.EpochInstance, params Params) []*Error {
	var errs []*Error
	d := sol.Diagnostics
	if d.FinalDeltaY > params.ToleranceY {
		errs = append(errs, &Error{
			Kind:    PredicateConvergence,
			Message: fmt.Sprintf("price step norm %.8g exceeds tolerance %.8g", d.FinalDeltaY, params.ToleranceY),
		})
	}
	if d.FinalDeltaAlpha > params.ToleranceAlpha {
		errs = append(errs, &Error{
			Kind:    PredicateConvergence,
			Message: fmt.Sprintf("fill step norm %.8g exceeds tolerance %.8g", d.FinalDeltaAlpha, params.ToleranceAlpha),
		})
	}
	return errs
}

// CheckPriceConsistency (P2) verifies every log-price is finite, the USD
// numeraire is pinned at zero, and the implied linear prices are positive.
func CheckPriceConsistency(sol clearing.EpochSolution, _ clearing.EpochInstance, params Params) []*Error {
	var errs []*Error
	for i, a := range asset.All {
		if i >= len(sol.Y) {
			break
		}
		y := sol.Y[i]
		if math.IsNaN(y) || math.IsInf(y, 0) {
			errs = append(errs, &Error{
				Kind:    PredicatePriceConsistency,
				Message: fmt.Sprintf("non-finite log-price for %s: %v", a, y),
			})
			continue
		}
		linear := math.Exp(y)
		if linear <= 0 {
			errs = append(errs, &Error{
				Kind:    PredicatePriceConsistency,
				Message: fmt.Sprintf("non-positive implied price for %s: %v", a, linear),
			})
		}
	}
	if usdIdx := asset.USD.Index(); usdIdx < len(sol.Y) {
		if math.Abs(sol.Y[usdIdx]) > params.ToleranceY {
			errs = append(errs, &Error{
				Kind:    PredicatePriceConsistency,
				Message: fmt.Sprintf("USD numeraire constraint violated: y_USD=%v", sol.Y[usdIdx]),
			})
		}
	}
	return errs
}

// CheckFillFeasibility (P3) verifies every fill's fraction is in [0,1] and
// its pay/receive amounts are finite and positive whenever the fraction
// exceeds the fill-amount floor.
func CheckFillFeasibility(sol clearing.EpochSolution, _ clearing.EpochInstance, params Params) []*Error {
	var errs []*Error
	for _, f := range sol.Fills {
		if f.Alpha < 0.0 || f.Alpha > 1.0 {
			errs = append(errs, &Error{
				Kind:    PredicateFillFeasibility,
				Message: fmt.Sprintf("order %s: fill fraction %.8g out of [0,1]", f.OrderID, f.Alpha),
			})
			continue
		}
		if f.Alpha <= params.FillAmountFloor {
			continue
		}
		if !f.PayAmount.IsPositive() {
			errs = append(errs, &Error{
				Kind:    PredicateFillFeasibility,
				Message: fmt.Sprintf("order %s: non-positive pay amount for fill fraction %.8g", f.OrderID, f.Alpha),
			})
		}
		if !f.ReceiveAmount.IsPositive() {
			errs = append(errs, &Error{
				Kind:    PredicateFillFeasibility,
				Message: fmt.Sprintf("order %s: non-positive receive amount for fill fraction %.8g", f.OrderID, f.Alpha),
			})
		}
	}
	return errs
}

// CheckInventoryConservation (P4) verifies the pool's post-clear inventory
// equals its pre-clear inventory plus the net flow implied by the fills:
// pay-asset in, receive-asset out.
func CheckInventoryConservation(sol clearing.EpochSolution, inst clearing.EpochInstance, params Params) []*Error {
	var errs []*Error

	ordersByID := make(map[string]int, len(inst.Orders))
	for i, o := range inst.Orders {
		ordersByID[o.ID] = i
	}

	netFlow := make([]float64, asset.N)
	for _, f := range sol.Fills {
		idx, ok := ordersByID[f.OrderID]
		if !ok {
			continue
		}
		o := inst.Orders[idx]
		netFlow[o.Pay.Index()] += f.PayAmount.Float64()
		netFlow[o.Receive.Index()] -= f.ReceiveAmount.Float64()
	}

	for i, a := range asset.All {
		if i >= len(sol.InventoryPost) || i >= len(inst.InventoryQ) {
			continue
		}
		expected := inst.InventoryQ[i] + netFlow[i]
		actual := sol.InventoryPost[i]
		if diff := math.Abs(actual - expected); diff > params.InventoryTolerance {
			errs = append(errs, &Error{
				Kind: PredicateInventoryConservation,
				Message: fmt.Sprintf(
					"asset %s: initial=%.8g net_flow=%.8g expected=%.8g actual=%.8g error=%.8g",
					a, inst.InventoryQ[i], netFlow[i], expected, actual, diff,
				),
			})
		}
	}
	return errs
}

// CheckObjectiveOptimality (P5) verifies the reported objective is
// internally consistent: both quadratic penalty terms are non-negative,
// the total is finite, and the three components sum to the reported
// total.
func CheckObjectiveOptimality(sol clearing.EpochSolution, _ clearing.EpochInstance, params Params) []*Error {
	var errs []*Error
	obj := sol.Objective

	if obj.InventoryPenalty < -params.InventoryTolerance {
		errs = append(errs, &Error{
			Kind:    PredicateObjectiveOptimality,
			Message: fmt.Sprintf("negative inventory penalty: %.8g", obj.InventoryPenalty),
		})
	}
	if obj.TrackingPenalty < -params.InventoryTolerance {
		errs = append(errs, &Error{
			Kind:    PredicateObjectiveOptimality,
			Message: fmt.Sprintf("negative tracking penalty: %.8g", obj.TrackingPenalty),
		})
	}
	if math.IsNaN(obj.Total) || math.IsInf(obj.Total, 0) {
		errs = append(errs, &Error{
			Kind:    PredicateObjectiveOptimality,
			Message: fmt.Sprintf("non-finite objective total: %v", obj.Total),
		})
		return errs
	}
	computed := obj.InventoryPenalty + obj.TrackingPenalty + obj.FillIncentive
	if diff := math.Abs(obj.Total - computed); diff > params.InventoryTolerance {
		errs = append(errs, &Error{
			Kind: PredicateObjectiveOptimality,
			Message: fmt.Sprintf(
				"objective components don't sum correctly: components=%.8g total=%.8g error=%.8g",
				computed, obj.Total, diff,
			),
		})
	}
	return errs
}
