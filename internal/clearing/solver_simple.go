package clearing

import "math"

// ProjectedGradientSolver is the debug backend: projected gradient descent
// on the QP objective. Box-shaped rows of A (a single unit coefficient) are
// enforced exactly by clamping; any other row is enforced only
// approximately, via a quadratic penalty added to the gradient. It exists
// for tests and local debugging where a dependency-free, easy-to-reason-
// about solver matters more than tight constraint satisfaction; production
// clearing should use ADMMSolver.
type ProjectedGradientSolver struct {
	MaxIterations int
	StepSize      float64
	PenaltyWeight float64
}

// NewProjectedGradientSolver returns a ProjectedGradientSolver with
// reasonable defaults.
func NewProjectedGradientSolver() *ProjectedGradientSolver {
	return &ProjectedGradientSolver{
		MaxIterations: 500,
		StepSize:      0.0, // 0 means auto-estimate from P's diagonal
		PenaltyWeight: 1e5,
	}
}

type boxRow struct {
	col  int
	sign float64 // +1 or -1, the row's single nonzero coefficient
}

func (s *ProjectedGradientSolver) classifyRows(model *QpModel) (lo, hi []float64, general []int) {
	n := model.NumVars()
	lo = make([]float64, n)
	hi = make([]float64, n)
	for i := range lo {
		lo[i] = math.Inf(-1)
		hi[i] = math.Inf(1)
	}
	rows, cols := model.A.Dims()
	for i := 0; i < rows; i++ {
		nz := -1
		coeff := 0.0
		isBox := true
		for j := 0; j < cols; j++ {
			v := model.A.At(i, j)
			if v == 0 {
				continue
			}
			if nz != -1 || (v != 1.0 && v != -1.0) {
				isBox = false
				break
			}
			nz = j
			coeff = v
		}
		if !isBox || nz == -1 {
			general = append(general, i)
			continue
		}
		l, u := model.L[i], model.U[i]
		if coeff < 0 {
			l, u = -model.U[i], -model.L[i]
		}
		if l > lo[nz] {
			lo[nz] = l
		}
		if u < hi[nz] {
			hi[nz] = u
		}
	}
	return lo, hi, general
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Solve implements SolverBackend.
func (s *ProjectedGradientSolver) Solve(model *QpModel, warmStart []float64) (QpSolution, error) {
	n := model.NumVars()
	if err := model.Validate(); err != nil {
		return QpSolution{Status: StatusSolverFail}, err
	}

	lo, hi, general := s.classifyRows(model)

	x := make([]float64, n)
	if len(warmStart) == n {
		copy(x, warmStart)
	}
	for i := range x {
		x[i] = clamp(x[i], lo[i], hi[i])
	}

	step := s.StepSize
	if step <= 0 {
		maxDiag := 1e-9
		for i := 0; i < n; i++ {
			if d := model.P.At(i, i); d > maxDiag {
				maxDiag = d
			}
		}
		step = 1.0 / (4.0 * maxDiag)
	}

	iters := 0
	for ; iters < s.MaxIterations; iters++ {
		grad := model.Gradient(x)
		for _, i := range general {
			rows, _ := model.A.Dims()
			_ = rows
			rowVal := 0.0
			for j := 0; j < n; j++ {
				rowVal += model.A.At(i, j) * x[j]
			}
			var viol float64
			if rowVal < model.L[i] {
				viol = rowVal - model.L[i]
			} else if rowVal > model.U[i] {
				viol = rowVal - model.U[i]
			}
			if viol == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a := model.A.At(i, j)
				if a != 0 {
					grad[j] += 2 * s.PenaltyWeight * viol * a
				}
			}
		}

		maxStep := 0.0
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			v := clamp(x[i]-step*grad[i], lo[i], hi[i])
			if d := math.Abs(v - x[i]); d > maxStep {
				maxStep = d
			}
			next[i] = v
		}
		x = next
		if maxStep < 1e-10 {
			iters++
			break
		}
	}

	worstResidual := 0.0
	rows, _ := model.A.Dims()
	for i := 0; i < rows; i++ {
		rowVal := 0.0
		for j := 0; j < n; j++ {
			rowVal += model.A.At(i, j) * x[j]
		}
		if r := model.RowResidual(i, rowVal); r > worstResidual {
			worstResidual = r
		}
	}

	status := StatusOptimal
	if worstResidual > 1e-6 {
		status = StatusSolverFail
	}

	return QpSolution{
		X:          x,
		Dual:       make([]float64, rows),
		Status:     status,
		Iterations: iters,
	}, nil
}
