// Package clearing implements the epoch-clearing engine: a sequential
// convex programming (SCP) driver that repeatedly linearizes the pool's
// bilinear objective around the current price/fill iterate, solves the
// resulting convex QP through a pluggable backend, and backtracks against
// the true nonlinear objective until both the price and fill iterates stop
// moving.
package clearing

import (
	"fmt"
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	xmat "github.com/OleSpjeldnas/ConvexFX/internal/mat"
	"github.com/OleSpjeldnas/ConvexFX/internal/order"
)

// ScpParams governs the SCP driver's iteration budget, convergence
// tolerances, and trust-region schedule.
//
// The defaults below follow the specification's recommended values
// (tolerance_y=1e-4, tolerance_alpha=1e-5, max_iterations=50) rather than
// the tighter, five-iteration defaults recorded in the source this
// package is grounded on; with those, a backend retry or a trust-region
// shrink can use up the whole iteration budget before the loop reaches
// its tolerance, and 50 iterations is cheap relative to one epoch's period.
type ScpParams struct {
	MaxIterations int
	ToleranceY    float64
	ToleranceAlpha float64

	InitialTrustBps float64
	MaxTrustBps     float64
	MinTrustBps     float64

	ArmijoC       float64
	BacktrackRho  float64
	MaxBacktracks int
}

// DefaultScpParams returns the specification's recommended tolerances and
// trust-region schedule.
func DefaultScpParams() ScpParams {
	return ScpParams{
		MaxIterations:  50,
		ToleranceY:     1e-4,
		ToleranceAlpha: 1e-5,

		InitialTrustBps: 10,
		MaxTrustBps:     30,
		MinTrustBps:     0.5,

		ArmijoC:       1e-4,
		BacktrackRho:  0.5,
		MaxBacktracks: 10,
	}
}

// Driver runs the SCP loop against a chosen QP backend.
type Driver struct {
	backend SolverBackend
	params  ScpParams
}

// NewDriver builds a Driver with the specification's recommended defaults.
func NewDriver(backend SolverBackend) *Driver {
	return NewDriverWithParams(backend, DefaultScpParams())
}

// NewDriverWithParams builds a Driver with caller-supplied tolerances.
func NewDriverWithParams(backend SolverBackend, params ScpParams) *Driver {
	return &Driver{backend: backend, params: params}
}

func validateInstance(inst EpochInstance) error {
	n := asset.N
	if len(inst.InventoryQ) != n {
		return &Error{Kind: KindInvalidInstance, Message: fmt.Sprintf("inventory has %d entries, want %d", len(inst.InventoryQ), n)}
	}
	if len(inst.Risk.QTarget) != n || len(inst.Risk.GammaDiag) != n || len(inst.Risk.WDiag) != n ||
		len(inst.Risk.QMin) != n || len(inst.Risk.QMax) != n {
		return &Error{Kind: KindInvalidInstance, Message: "risk parameters must have one entry per asset"}
	}
	for i := 0; i < n; i++ {
		if inst.Risk.QMin[i] > inst.Risk.QMax[i] {
			return &Error{Kind: KindInvalidInstance, Message: fmt.Sprintf("asset %d: QMin > QMax", i)}
		}
	}
	seen := make(map[string]bool, len(inst.Orders))
	for _, o := range inst.Orders {
		if err := order.Validate(o); err != nil {
			return &Error{Kind: KindInvalidInstance, Message: err.Error()}
		}
		if seen[o.ID] {
			return &Error{Kind: KindInvalidInstance, Message: fmt.Sprintf("duplicate order ID %q", o.ID)}
		}
		seen[o.ID] = true
	}
	return nil
}

func trueObjectiveAndFeasible(inst EpochInstance, y, alpha []float64) (float64, bool) {
	_, inventoryPost := computeFillsAndInventory(inst, y, alpha)
	terms := computeObjectiveTerms(inst, y, alpha, inventoryPost)
	return terms.Total, inst.Risk.IsWithinBounds(inventoryPost)
}

func dotVec(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Clear runs the SCP loop to convergence, or returns a *Error describing
// why it could not.
func (d *Driver) Clear(inst EpochInstance) (EpochSolution, error) {
	if err := validateInstance(inst); err != nil {
		return EpochSolution{}, err
	}

	n := asset.N
	k := len(inst.Orders)
	delta := d.params.InitialTrustBps

	ws := xmat.NewWorkspace(n, k)
	ws.Init(inst.RefPrices.Vector(), make([]float64, k))

	diag := Diagnostics{FinalTrustBps: delta}

	for iter := 0; iter < d.params.MaxIterations; iter++ {
		y, alpha := ws.Current()
		model, err := Build(inst, y, alpha, delta)
		if err != nil {
			return EpochSolution{}, &Error{Kind: KindInvalidInstance, Message: err.Error()}
		}

		sol, err := d.backend.Solve(model, ws.Combined())
		if err != nil || sol.Status != StatusOptimal {
			delta *= 0.5
			if delta < d.params.MinTrustBps {
				return EpochSolution{}, &Error{
					Kind:        KindSolverFail,
					Message:     "QP backend failed to reach an optimal solution and trust region collapsed below its floor",
					Diagnostics: &diag,
				}
			}
			continue
		}
		diag.BackendIters = append(diag.BackendIters, sol.Iterations)

		yQP, alphaQP := ExtractSolution(sol)
		deltaY, deltaAlpha := ws.Delta(yQP, alphaQP)

		curObj, _ := trueObjectiveAndFeasible(inst, y, alpha)
		modelGrad := model.Gradient(ws.Combined())
		predictedDecrease := dotVec(modelGrad, ws.CombinedDelta(deltaY, deltaAlpha))

		s := 1.0
		accepted := false
		for bt := 0; bt < d.params.MaxBacktracks; bt++ {
			yTrial, alphaTrial := ws.Trial(deltaY, deltaAlpha, s)
			trialObj, feasible := trueObjectiveAndFeasible(inst, yTrial, alphaTrial)
			armijoOK := trialObj <= curObj+d.params.ArmijoC*s*predictedDecrease || trialObj <= curObj
			if feasible && armijoOK {
				accepted = true
				break
			}
			s *= d.params.BacktrackRho
		}

		if !accepted {
			delta *= 0.5
			if delta < d.params.MinTrustBps {
				return EpochSolution{}, &Error{
					Kind:        KindSolverFail,
					Message:     "line search could not find a feasible, sufficiently-decreasing step and trust region collapsed",
					Diagnostics: &diag,
				}
			}
			continue
		}

		stepNormY := infNorm(deltaY) * s
		stepNormAlpha := infNorm(deltaAlpha) * s

		ws.Accept()

		if s >= 1.0 {
			delta = math.Min(delta*1.5, d.params.MaxTrustBps)
		} else if s < 0.2 {
			delta = math.Max(delta*0.5, d.params.MinTrustBps)
		}

		diag.Iterations = iter + 1
		diag.FinalDeltaY = stepNormY
		diag.FinalDeltaAlpha = stepNormAlpha
		diag.FinalTrustBps = delta
		diag.LineSearchSteps = append(diag.LineSearchSteps, s)

		if stepNormY < d.params.ToleranceY && stepNormAlpha < d.params.ToleranceAlpha {
			finalY, finalAlpha := ws.Current()
			return d.finalize(inst, finalY, finalAlpha, diag), nil
		}
	}

	finalY, finalAlpha := ws.Current()
	partial := d.finalize(inst, finalY, finalAlpha, diag)
	return EpochSolution{}, &Error{
		Kind:        KindDidNotConverge,
		Message:     fmt.Sprintf("SCP did not converge within %d iterations", d.params.MaxIterations),
		Diagnostics: &diag,
		Partial:     &partial,
	}
}

// Clear runs the SCP driver with the production ADMM backend. It is the
// package-level convenience entry point; callers needing a different
// backend (e.g. the debug projected-gradient solver in tests) should
// construct a Driver directly.
func Clear(inst EpochInstance, params ScpParams) (EpochSolution, error) {
	driver := NewDriverWithParams(NewADMMSolver(), params)
	return driver.Clear(inst)
}

func (d *Driver) finalize(inst EpochInstance, y, alpha []float64, diag Diagnostics) EpochSolution {
	repaired := applyMinFillRepair(inst, alpha)
	fills, inventoryPost := computeFillsAndInventory(inst, y, repaired)
	objective := computeObjectiveTerms(inst, y, repaired, inventoryPost)

	return EpochSolution{
		EpochID:       inst.EpochID,
		Y:             y,
		Fills:         fills,
		InventoryPost: inventoryPost,
		Objective:     objective,
		Diagnostics:   diag,
	}
}
