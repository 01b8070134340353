package clearing

import (
	"fmt"
	"math"

	xmat "github.com/OleSpjeldnas/ConvexFX/internal/mat"
	gmat "gonum.org/v1/gonum/mat"
)

// ADMMSolver is the production QP backend: an OSQP-style operator-splitting
// solver over a dense KKT system, factorized once per solve via LU and
// reused across ADMM iterations. It is the Go-native analogue of an
// interior-point backend where no pure-Go equivalent exists in the
// available dependency set.
type ADMMSolver struct {
	MaxIterations int
	Rho           float64
	Sigma         float64
	Relaxation    float64
	EpsAbs        float64
}

// NewADMMSolver returns an ADMMSolver with a 4000-iteration cap and a 1e-8
// absolute tolerance on both residuals.
func NewADMMSolver() *ADMMSolver {
	return &ADMMSolver{
		MaxIterations: 4000,
		Rho:           1.0,
		Sigma:         1e-6,
		Relaxation:    1.6,
		EpsAbs:        1e-8,
	}
}

func projectBox(v, l, u []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = clamp(v[i], l[i], u[i])
	}
	return out
}

func infNorm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// Solve implements SolverBackend.
func (s *ADMMSolver) Solve(model *QpModel, warmStart []float64) (QpSolution, error) {
	if err := model.Validate(); err != nil {
		return QpSolution{Status: StatusSolverFail}, err
	}
	n := model.NumVars()
	m := model.NumConstraints()

	pDense := gmat.DenseCopyOf(model.P)
	kkt := gmat.NewDense(n+m, n+m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := pDense.At(i, j)
			if i == j {
				v += s.Sigma
			}
			kkt.Set(i, j, v)
		}
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			a := model.A.At(i, j)
			kkt.Set(n+i, j, a)
			kkt.Set(j, n+i, a)
		}
		kkt.Set(n+i, n+i, -1.0/s.Rho)
	}

	var lu gmat.LU
	lu.Factorize(kkt)

	x := make([]float64, n)
	if len(warmStart) == n {
		copy(x, warmStart)
	}
	z := model.Ax(x)
	y := make([]float64, m)

	rhs := gmat.NewVecDense(n+m, nil)
	sol := gmat.NewVecDense(n+m, nil)

	qSlice := xmat.ToSlice(model.Q)

	iters := 0
	status := StatusSolverFail
	for ; iters < s.MaxIterations; iters++ {
		for i := 0; i < n; i++ {
			rhs.SetVec(i, s.Sigma*x[i]-qSlice[i])
		}
		for i := 0; i < m; i++ {
			rhs.SetVec(n+i, z[i]-y[i]/s.Rho)
		}
		if err := lu.SolveVecTo(sol, false, rhs); err != nil {
			return QpSolution{X: x, Status: StatusSolverFail}, fmt.Errorf("clearing: admm: kkt solve: %w", err)
		}

		xTilde := make([]float64, n)
		for i := 0; i < n; i++ {
			xTilde[i] = sol.AtVec(i)
		}
		zTilde := model.Ax(xTilde)

		xNext := make([]float64, n)
		for i := 0; i < n; i++ {
			xNext[i] = s.Relaxation*xTilde[i] + (1-s.Relaxation)*x[i]
		}

		zRelaxed := make([]float64, m)
		for i := 0; i < m; i++ {
			zRelaxed[i] = s.Relaxation*zTilde[i] + (1-s.Relaxation)*z[i] + y[i]/s.Rho
		}
		zNext := projectBox(zRelaxed, model.L, model.U)

		yNext := make([]float64, m)
		for i := 0; i < m; i++ {
			yNext[i] = y[i] + s.Rho*(s.Relaxation*zTilde[i]+(1-s.Relaxation)*z[i]-zNext[i])
		}

		axNext := model.Ax(xNext)
		primalResidual := make([]float64, m)
		for i := range primalResidual {
			primalResidual[i] = axNext[i] - zNext[i]
		}

		// KKT dual condition: P*x + q + A^T*y == 0.
		gradNext := model.Gradient(xNext)
		aty := make([]float64, n)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				aty[j] += model.A.At(i, j) * yNext[i]
			}
		}
		dualResidual := make([]float64, n)
		for i := 0; i < n; i++ {
			dualResidual[i] = gradNext[i] + aty[i]
		}

		x, z, y = xNext, zNext, yNext

		if infNorm(primalResidual) < s.EpsAbs && infNorm(dualResidual) < s.EpsAbs {
			status = StatusOptimal
			iters++
			break
		}
	}
	if status != StatusOptimal {
		// did not converge within the iteration budget; the last iterate
		// is still returned alongside the failure status.
		status = StatusSolverFail
	}

	dual := make([]float64, m)
	copy(dual, y)

	return QpSolution{
		X:          x,
		Dual:       dual,
		Status:     status,
		Iterations: iters,
	}, nil
}
