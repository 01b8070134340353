package clearing

import "fmt"

// ErrorKind enumerates the ways an epoch fails to clear, short of a
// local-law predicate violation (which the validate package reports on
// its own, downstream of a successful Clear call).
type ErrorKind int

const (
	// KindInvalidInstance: malformed input detected before clearing starts.
	KindInvalidInstance ErrorKind = iota
	// KindSolverFail: the QP backend kept returning non-optimal results, or
	// the line search kept failing, until the repeatedly halved trust
	// region fell below its floor.
	KindSolverFail
	// KindDidNotConverge: max SCP iterations hit with step norms still
	// above tolerance.
	KindDidNotConverge
	// KindInfeasible: the constraint set admits no point at all.
	KindInfeasible
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInstance:
		return "InvalidInstance"
	case KindSolverFail:
		return "SolverFail"
	case KindDidNotConverge:
		return "DidNotConverge"
	case KindInfeasible:
		return "Infeasible"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the clearing engine's sum-type error: a Kind tag plus a
// human-readable message and, for DidNotConverge, the last iterate so the
// caller isn't left without context on what the engine was converging
// toward when it ran out of iterations.
type Error struct {
	Kind        ErrorKind
	Message     string
	Diagnostics *Diagnostics
	Partial     *EpochSolution
}

func (e *Error) Error() string {
	return fmt.Sprintf("clearing: %s: %s", e.Kind, e.Message)
}
