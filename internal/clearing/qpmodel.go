package clearing

import (
	"fmt"

	gmat "gonum.org/v1/gonum/mat"
)

// VarKind tags a decision-variable's role, so that diagnostics can recover
// per-asset/per-order meaning from a flat solution vector.
type VarKind int

const (
	VarLogPrice VarKind = iota
	VarFillFraction
)

// VarMeta names one entry of the decision vector x = (y, alpha).
type VarMeta struct {
	Kind    VarKind
	Asset   int    // valid when Kind == VarLogPrice; an asset.Id value
	OrderID string // valid when Kind == VarFillFraction
}

// QpModel is the convex subproblem the SCP driver hands to a SolverBackend
// at each iteration: minimize 0.5 x^T P x + q^T x subject to L <= A x <= U.
type QpModel struct {
	P    gmat.Symmetric
	Q    *gmat.VecDense
	A    *gmat.Dense
	L, U []float64
	Vars []VarMeta
}

// NumVars returns n+K, the decision vector's length.
func (m *QpModel) NumVars() int { return m.P.SymmetricDim() }

// NumConstraints returns the number of rows of A.
func (m *QpModel) NumConstraints() int { return len(m.L) }

// Validate checks the model's dimensions are mutually consistent.
func (m *QpModel) Validate() error {
	n := m.NumVars()
	if m.Q.Len() != n {
		return fmt.Errorf("clearing: qp model: q has length %d, want %d", m.Q.Len(), n)
	}
	rows, cols := m.A.Dims()
	if cols != n {
		return fmt.Errorf("clearing: qp model: A has %d columns, want %d", cols, n)
	}
	if len(m.L) != rows || len(m.U) != rows {
		return fmt.Errorf("clearing: qp model: bounds length mismatch with A rows %d", rows)
	}
	for i := range m.L {
		if m.L[i] > m.U[i] {
			return fmt.Errorf("clearing: qp model: row %d has L=%v > U=%v", i, m.L[i], m.U[i])
		}
	}
	return nil
}

// Ax evaluates A*x for a plain slice x.
func (m *QpModel) Ax(x []float64) []float64 {
	rows, _ := m.A.Dims()
	xv := gmat.NewVecDense(len(x), x)
	out := gmat.NewVecDense(rows, nil)
	out.MulVec(m.A, xv)
	res := make([]float64, rows)
	for i := 0; i < rows; i++ {
		res[i] = out.AtVec(i)
	}
	return res
}

// Gradient evaluates the QP objective's gradient P*x + q at x.
func (m *QpModel) Gradient(x []float64) []float64 {
	n := m.NumVars()
	xv := gmat.NewVecDense(n, x)
	out := gmat.NewVecDense(n, nil)
	out.MulVec(m.P, xv)
	out.AddVec(out, m.Q)
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		res[i] = out.AtVec(i)
	}
	return res
}

// Objective evaluates 0.5 x^T P x + q^T x at x.
func (m *QpModel) Objective(x []float64) float64 {
	n := m.NumVars()
	xv := gmat.NewVecDense(n, x)
	pxv := gmat.NewVecDense(n, nil)
	pxv.MulVec(m.P, xv)
	quad := 0.5 * gmat.Dot(xv, pxv)
	lin := gmat.Dot(m.Q, xv)
	return quad + lin
}

// RowResidual returns how far row i of A*x is outside [L[i], U[i]]; zero
// when feasible. Used by backends to report constraint violation.
func (m *QpModel) RowResidual(i int, rowValue float64) float64 {
	if rowValue < m.L[i] {
		return m.L[i] - rowValue
	}
	if rowValue > m.U[i] {
		return rowValue - m.U[i]
	}
	return 0
}
