// Package odeerr defines the error kinds shared by nlfunc, newton and
// butcher: the handful of conditions a caller of the stepper/solver API is
// expected to branch on, as opposed to programmer-error invariant
// violations (those still panic, in the teacher's throwf style).
package odeerr

import "fmt"

// Kind classifies an Error.
type Kind int

const (
	// ShapeMismatch: a combinator was constructed with incompatible
	// dimensions. Detected at construction time.
	ShapeMismatch Kind = iota
	// DimensionMismatch: evaluate/evaluateDeriv called with a buffer of
	// the wrong length. Detected at call time.
	DimensionMismatch
	// NewtonDivergence: Newton's method exceeded its iteration cap
	// without satisfying the convergence criterion.
	NewtonDivergence
	// NewtonSingularJacobian: the linear solve inside Newton's method
	// failed because the Jacobian was (numerically) singular.
	NewtonSingularJacobian
	// NumericDomain: a NaN or Inf escaped an AD evaluation (division by
	// zero, sqrt of a negative, log of a non-positive value). The value
	// is reported, not masked.
	NumericDomain
)

func (k Kind) String() string {
	switch k {
	case ShapeMismatch:
		return "ShapeMismatch"
	case DimensionMismatch:
		return "DimensionMismatch"
	case NewtonDivergence:
		return "NewtonDivergence"
	case NewtonSingularJacobian:
		return "NewtonSingularJacobian"
	case NumericDomain:
		return "NumericDomain"
	default:
		return "Unknown"
	}
}

// Error is the error type returned for the Kinds above. It wraps an
// optional underlying cause (e.g. the linear solver's own error).
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so callers can
// use errors.Is(err, odeerr.New(odeerr.NewtonDivergence, "")) or compare
// kinds directly via errors.As.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given Kind.
func New(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error of the given Kind around a cause.
func Wrap(kind Kind, cause error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: cause}
}
