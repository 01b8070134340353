// Package mat wraps gonum's dense linear algebra with the handful of
// helpers the QP builder and solvers need, and a reusable scratch
// Workspace so the SCP driver does not allocate fresh vectors/matrices on
// every iteration.
package mat

import "gonum.org/v1/gonum/mat"

// Diag builds a diagonal symmetric matrix from a slice of diagonal entries.
func Diag(diag []float64) *mat.SymDense {
	n := len(diag)
	m := mat.NewSymDense(n, nil)
	for i, v := range diag {
		m.SetSym(i, i, v)
	}
	return m
}

// BlockDiag stacks two diagonal blocks (e.g. the y-block Hessian W and a
// zero alpha-block) into one (n+k)x(n+k) symmetric matrix.
func BlockDiag(a, b []float64) *mat.SymDense {
	n, k := len(a), len(b)
	m := mat.NewSymDense(n+k, nil)
	for i, v := range a {
		m.SetSym(i, i, v)
	}
	for i, v := range b {
		m.SetSym(n+i, n+i, v)
	}
	return m
}

// QuadForm computes 0.5 * x^T P x.
func QuadForm(x *mat.VecDense, p mat.Symmetric) float64 {
	n := x.Len()
	tmp := mat.NewVecDense(n, nil)
	tmp.MulVec(p, x)
	return 0.5 * mat.Dot(x, tmp)
}

// Vec builds a VecDense from a plain slice, copying the data.
func Vec(data []float64) *mat.VecDense {
	out := make([]float64, len(data))
	copy(out, data)
	return mat.NewVecDense(len(out), out)
}

// ToSlice copies a VecDense into a plain []float64.
func ToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.AtVec(i)
	}
	return out
}

// Workspace holds the SCP driver's current (y, alpha) iterate plus the
// scratch buffers its per-iteration delta/trial/combined-vector math needs,
// sized once for n log-prices and k fill fractions. The driver builds and
// solves a QP from scratch every iteration regardless (Build itself
// allocates the constraint matrix), but the plain-slice bookkeeping around
// that call — step differences, line-search trial points, the n+k
// concatenation the QP model's gradient takes — no longer allocates fresh
// slices on every one of those iterations. Not safe for concurrent use; one
// Workspace per Clear call.
type Workspace struct {
	n, k int

	curY, curAlpha     []float64
	deltaY, deltaAlpha []float64
	trialY, trialAlpha []float64
	combined           []float64
	combinedDelta      []float64
}

// NewWorkspace allocates scratch buffers sized for n log-prices and k
// fill fractions.
func NewWorkspace(n, k int) *Workspace {
	return &Workspace{
		n: n, k: k,
		curY:          make([]float64, n),
		curAlpha:      make([]float64, k),
		deltaY:        make([]float64, n),
		deltaAlpha:    make([]float64, k),
		trialY:        make([]float64, n),
		trialAlpha:    make([]float64, k),
		combined:      make([]float64, n+k),
		combinedDelta: make([]float64, n+k),
	}
}

// Init seeds the workspace's current iterate, copying y and alpha in.
func (w *Workspace) Init(y, alpha []float64) {
	copy(w.curY, y)
	copy(w.curAlpha, alpha)
}

// Current returns the workspace's current (y, alpha) iterate buffers.
// Callers must not retain these past the next call that mutates them.
func (w *Workspace) Current() (y, alpha []float64) { return w.curY, w.curAlpha }

// Delta writes qpY-curY and qpAlpha-curAlpha into scratch and returns them.
func (w *Workspace) Delta(qpY, qpAlpha []float64) (deltaY, deltaAlpha []float64) {
	for i := range w.deltaY {
		w.deltaY[i] = qpY[i] - w.curY[i]
	}
	for i := range w.deltaAlpha {
		w.deltaAlpha[i] = qpAlpha[i] - w.curAlpha[i]
	}
	return w.deltaY, w.deltaAlpha
}

// Trial writes curY+s*deltaY and curAlpha+s*deltaAlpha into scratch and
// returns them, for one line-search backtracking attempt.
func (w *Workspace) Trial(deltaY, deltaAlpha []float64, s float64) (y, alpha []float64) {
	for i := range w.trialY {
		w.trialY[i] = w.curY[i] + s*deltaY[i]
	}
	for i := range w.trialAlpha {
		w.trialAlpha[i] = w.curAlpha[i] + s*deltaAlpha[i]
	}
	return w.trialY, w.trialAlpha
}

// Accept copies the most recent trial iterate into the current one.
func (w *Workspace) Accept() {
	copy(w.curY, w.trialY)
	copy(w.curAlpha, w.trialAlpha)
}

// Combined writes the current iterate into one contiguous n+k scratch
// buffer, the shape QpModel.Gradient and the backend's warm start take.
func (w *Workspace) Combined() []float64 {
	copy(w.combined[:w.n], w.curY)
	copy(w.combined[w.n:], w.curAlpha)
	return w.combined
}

// CombinedDelta writes deltaY and deltaAlpha into one contiguous n+k
// scratch buffer, the shape a gradient dot product takes.
func (w *Workspace) CombinedDelta(deltaY, deltaAlpha []float64) []float64 {
	copy(w.combinedDelta[:w.n], deltaY)
	copy(w.combinedDelta[w.n:], deltaAlpha)
	return w.combinedDelta
}

// Dims returns the (n, k) sizing the workspace was built for.
func (w *Workspace) Dims() (int, int) { return w.n, w.k }
