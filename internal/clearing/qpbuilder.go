package clearing

import (
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	xmat "github.com/OleSpjeldnas/ConvexFX/internal/mat"
	gmat "gonum.org/v1/gonum/mat"
)

// yHessianRegularizer and alphaHessianRegularizer keep P strictly positive
// definite: the spec's block-diag(W+epsilon*I, 0) Hessian plus a small
// second-order correction on the alpha block so the QP remains well-posed
// even when eta is small and the fill-incentive term contributes almost
// nothing curvature-wise.
const (
	yHessianRegularizer     = 1e-6
	alphaHessianRegularizer = 1e-4
	fillAmountFloor         = 1e-8

	// ghostInventoryKappa scales the smooth reciprocal barrier added near
	// QMin/QMax (see ghostInventoryGradient). Small enough to leave
	// mid-range inventory untouched; large enough to dominate the hard
	// box row's gradient once the iterate gets within a few percent of a
	// bound.
	ghostInventoryKappa = 1e-3
	// ghostInventoryFloor keeps the barrier's Taylor expansion finite if
	// the current iterate sits at or past a bound, which can happen
	// transiently during SCP backtracking.
	ghostInventoryFloor = 1e-6
)

// inventoryJacobian holds the pool's estimated post-clear inventory at the
// current (y, alpha) iterate and its first derivatives, used both to turn
// the Gamma-quadratic's gradient into a QP linear term and to linearize the
// inventory-bound constraint rows. beta_k(y) = exp(y_pay - y_recv) is
// frozen at the current iterate for the constraint Jacobian, matching the
// SCP driver's linearize-around-y^(t) contract.
type inventoryJacobian struct {
	qHat []float64   // n, the current-iterate estimate of q'(alpha, y)
	dQdY [][]float64 // n x n
	dQdA [][]float64 // n x K
}

// buildInventoryJacobian computes q'(alpha,y) at the current iterate using
// the pool-accounting convention also used by reconstruction: a fill sends
// pay-asset into the pool (q increases) and receive-asset out of the pool
// (q decreases), mirroring a taker paying p_k to receive r_k from the pool.
func buildInventoryJacobian(inst EpochInstance, y, alpha []float64) inventoryJacobian {
	n := asset.N
	k := len(inst.Orders)

	qHat := append([]float64(nil), inst.InventoryQ...)
	dQdY := make([][]float64, n)
	dQdA := make([][]float64, n)
	for i := range dQdY {
		dQdY[i] = make([]float64, n)
		dQdA[i] = make([]float64, k)
	}

	for idx, o := range inst.Orders {
		pay := o.Pay.Index()
		recv := o.Receive.Index()
		budget := o.Budget.Float64()
		beta := math.Exp(y[pay] - y[recv])
		a := alpha[idx]

		qHat[pay] += a * budget
		qHat[recv] -= a * budget * beta

		dQdA[pay][idx] += budget
		dQdA[recv][idx] += -budget * beta

		dQdY[recv][pay] += -a * budget * beta
		dQdY[recv][recv] += a * budget * beta
	}

	return inventoryJacobian{qHat: qHat, dQdY: dQdY, dQdA: dQdA}
}

// gammaGradient linearizes the inventory-risk term
// 0.5*(q'(alpha,y)-qTarget)^T Gamma (q'(alpha,y)-qTarget) around the
// current iterate via the chain rule through buildInventoryJacobian,
// returning its contribution to the QP's linear term. The original source
// never wires Gamma into the QP at all; this closes that gap per the
// spec's requirement that "the y-gradient of the Gamma-term is added to
// the linear cost vector."
func gammaGradient(inst EpochInstance, jac inventoryJacobian) (gY []float64, gAlpha []float64) {
	n := asset.N
	k := len(inst.Orders)

	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		residual[i] = inst.Risk.GammaDiag[i] * (jac.qHat[i] - inst.Risk.QTarget[i])
	}

	gY = make([]float64, n)
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += residual[i] * jac.dQdY[i][j]
		}
		gY[j] = sum
	}

	gAlpha = make([]float64, k)
	for idx := 0; idx < k; idx++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += residual[i] * jac.dQdA[i][idx]
		}
		gAlpha[idx] = sum
	}
	return gY, gAlpha
}

// ghostInventoryGradient linearizes spec §4.5's required "smooth convex
// penalty approaching infinity as inventory nears q_min/q_max" — a
// reciprocal barrier kappa/(qMax-q) + kappa/(q-qMin) evaluated at the
// current iterate — through the same buildInventoryJacobian chain rule
// gammaGradient uses, and returns its contribution to the QP's linear
// term. This runs alongside, not instead of, the hard inventory-bound
// constraint row below: the row alone gives the backend no incentive to
// stay clear of a bound until it is already pinned there, which is what
// causes the oscillation this penalty exists to avoid.
func ghostInventoryGradient(inst EpochInstance, jac inventoryJacobian) (gY []float64, gAlpha []float64) {
	n := asset.N
	k := len(inst.Orders)

	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		distToMax := inst.Risk.QMax[i] - jac.qHat[i]
		if distToMax < ghostInventoryFloor {
			distToMax = ghostInventoryFloor
		}
		distToMin := jac.qHat[i] - inst.Risk.QMin[i]
		if distToMin < ghostInventoryFloor {
			distToMin = ghostInventoryFloor
		}
		residual[i] = ghostInventoryKappa * (1/(distToMax*distToMax) - 1/(distToMin*distToMin))
	}

	gY = make([]float64, n)
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += residual[i] * jac.dQdY[i][j]
		}
		gY[j] = sum
	}

	gAlpha = make([]float64, k)
	for idx := 0; idx < k; idx++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += residual[i] * jac.dQdA[i][idx]
		}
		gAlpha[idx] = sum
	}
	return gY, gAlpha
}

// Build constructs the linearized convex QP subproblem at (yCurrent,
// alphaCurrent) with a trust-region half-width of bandBps basis points
// around the oracle's reference log-prices.
//
// Two deliberate corrections relative to the source this package is
// grounded on: the fill-incentive linear term uses
// -eta*budget*beta_k(y^(t)), the actual gradient of the fill-incentive
// term (the original left this a placeholder that multiplied by an
// asset's integer tag); and the price-tracking linear term is the exact
// constant -W*yRef (the tracking penalty is already quadratic in absolute
// y, so it needs no per-iteration relinearization — the original's
// y_curr-dependent formula pushes y away from yRef instead of toward it).
func Build(inst EpochInstance, yCurrent, alphaCurrent []float64, bandBps float64) (*QpModel, error) {
	n := asset.N
	k := len(inst.Orders)
	nVars := n + k

	wDiag := make([]float64, n)
	for i := 0; i < n; i++ {
		wDiag[i] = inst.Risk.WDiag[i] + yHessianRegularizer
	}
	alphaDiag := make([]float64, k)
	for i := range alphaDiag {
		alphaDiag[i] = alphaHessianRegularizer
	}
	p := xmat.BlockDiag(wDiag, alphaDiag)

	jac := buildInventoryJacobian(inst, yCurrent, alphaCurrent)
	gY, gAlpha := gammaGradient(inst, jac)
	ghostY, ghostAlpha := ghostInventoryGradient(inst, jac)

	qVec := make([]float64, nVars)
	for i, a := range asset.All {
		yRef := inst.RefPrices.Get(a)
		qVec[i] = -inst.Risk.WDiag[i]*yRef + gY[i] + ghostY[i]
	}
	for idx, o := range inst.Orders {
		pay := o.Pay.Index()
		recv := o.Receive.Index()
		beta := math.Exp(yCurrent[pay] - yCurrent[recv])
		budget := o.Budget.Float64()
		qVec[n+idx] = -inst.Risk.Eta*budget*beta + gAlpha[idx] + ghostAlpha[idx]
	}

	limitCount := 0
	for _, o := range inst.Orders {
		if o.HasLimit() {
			limitCount++
		}
	}
	nConstraints := 1 + n + k + n + limitCount

	a := gmat.NewDense(nConstraints, nVars, nil)
	l := make([]float64, nConstraints)
	u := make([]float64, nConstraints)
	row := 0

	// Numeraire equality: y_USD pinned at 0.
	a.Set(row, asset.USD.Index(), 1.0)
	l[row], u[row] = 0.0, 0.0
	row++

	// Trust region box on y, centered on the oracle's reference log-price.
	bandHalf := bandBps / 10000.0
	for i, assetID := range asset.All {
		yRef := inst.RefPrices.Get(assetID)
		a.Set(row, i, 1.0)
		l[row] = yRef - bandHalf
		u[row] = yRef + bandHalf
		row++
	}

	// Fill-fraction bounds, alpha in [0,1]^K.
	for idx := 0; idx < k; idx++ {
		a.Set(row, n+idx, 1.0)
		l[row], u[row] = 0.0, 1.0
		row++
	}

	// Inventory bounds, linearized around the current iterate: the row
	// encodes q'(alpha,y) ~= qHat + dQdY*(y-yCurrent) + dQdA*(alpha-alphaCurrent).
	for i := 0; i < n; i++ {
		offset := jac.qHat[i]
		for j := 0; j < n; j++ {
			a.Set(row, j, jac.dQdY[i][j])
			offset -= jac.dQdY[i][j] * yCurrent[j]
		}
		for idx := 0; idx < k; idx++ {
			a.Set(row, n+idx, jac.dQdA[i][idx])
			offset -= jac.dQdA[i][idx] * alphaCurrent[idx]
		}
		l[row] = inst.Risk.QMin[i] - offset
		u[row] = inst.Risk.QMax[i] - offset
		row++
	}

	// Limit-ratio half-spaces: y_recv - y_pay <= log(limitRatio).
	for _, o := range inst.Orders {
		if !o.HasLimit() {
			continue
		}
		a.Set(row, o.Receive.Index(), 1.0)
		a.Set(row, o.Pay.Index(), -1.0)
		l[row] = math.Inf(-1)
		u[row] = o.LogLimit()
		row++
	}

	vars := make([]VarMeta, 0, nVars)
	for _, assetID := range asset.All {
		vars = append(vars, VarMeta{Kind: VarLogPrice, Asset: assetID.Index()})
	}
	for _, o := range inst.Orders {
		vars = append(vars, VarMeta{Kind: VarFillFraction, OrderID: o.ID})
	}

	return &QpModel{
		P:    p,
		Q:    gmat.NewVecDense(nVars, qVec),
		A:    a,
		L:    l,
		U:    u,
		Vars: vars,
	}, nil
}

// ExtractSolution splits a QP solution vector into the log-price block and
// the fill-fraction block.
func ExtractSolution(sol QpSolution) (y []float64, alpha []float64) {
	n := asset.N
	if len(sol.X) < n {
		return nil, nil
	}
	y = append([]float64(nil), sol.X[:n]...)
	alpha = append([]float64(nil), sol.X[n:]...)
	return y, alpha
}
