// Package nlfunc implements the nonlinear-function abstraction the rest of
// the toolkit is built on: an entity with a fixed input/output dimension
// exposing an evaluate and a Jacobian (evaluateDeriv) operation, plus an
// algebra of combinators (Sum, Scale, Compose, Embed, Projector, Multiple,
// MatVec) that build composite Functions out of simpler ones.
//
// Combinators share ownership of their children by reference — the same
// child Function may be embedded in several parents, as the time-steppers
// in package stepper do when they wrap a user's right-hand side in a
// residual. Parameter and ConstantFunction are the two mutable leaves of the
// algebra: boxes a stepper mutates between Newton calls, observed by every
// node holding a reference to them.
package nlfunc

import (
	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/odeerr"
)

// Function is a nonlinear map R^DimX -> R^DimF exposing its own Jacobian.
// Implementations must not alias their x and f/df arguments: Evaluate and
// EvaluateDeriv write through the destination slice/matrix given to them,
// they never return freshly allocated storage that shares backing memory
// with the input.
type Function interface {
	DimX() int
	DimF() int
	// Evaluate computes f(x) into f. Panics with a *odeerr.Error of Kind
	// DimensionMismatch if len(x) != DimX() or len(f) != DimF().
	Evaluate(x, f []float64)
	// EvaluateDeriv computes the DimF x DimX Jacobian of f at x into df.
	// Panics with a *odeerr.Error of Kind DimensionMismatch if the shapes
	// disagree.
	EvaluateDeriv(x []float64, df *mat.Dense)
}

func checkVec[T any](name string, got []T, want int) {
	if len(got) != want {
		panic(odeerr.New(odeerr.DimensionMismatch, "%s: length %d, want %d", name, len(got), want))
	}
}

func checkMat(name string, df *mat.Dense, rows, cols int) {
	r, c := df.Dims()
	if r != rows || c != cols {
		panic(odeerr.New(odeerr.DimensionMismatch, "%s: shape %dx%d, want %dx%d", name, r, c, rows, cols))
	}
}

// Parameter is a scalar box shared by reference between function nodes; its
// Value is read at each evaluation. A stepper mutates Value before each
// Newton call and must leave it untouched while Newton is running.
type Parameter struct {
	Value float64
}

// NewParameter returns a Parameter initialised to v.
func NewParameter(v float64) *Parameter { return &Parameter{Value: v} }

// ConstantFunction is a vector box with DimX()==DimF()==len(V); it evaluates
// to V regardless of input and has a zero Jacobian. Like Parameter, it is
// shared between a stepper and the residual graph it builds so that setting
// it through the stepper is observed by every parent node.
type ConstantFunction struct {
	V []float64
}

// NewConstantFunction copies v into a fresh ConstantFunction.
func NewConstantFunction(v []float64) *ConstantFunction {
	cp := make([]float64, len(v))
	copy(cp, v)
	return &ConstantFunction{V: cp}
}

// Set overwrites the stored vector. len(v) must equal len(c.V).
func (c *ConstantFunction) Set(v []float64) {
	checkVec("ConstantFunction.Set", v, len(c.V))
	copy(c.V, v)
}

func (c *ConstantFunction) DimX() int { return len(c.V) }
func (c *ConstantFunction) DimF() int { return len(c.V) }

func (c *ConstantFunction) Evaluate(x, f []float64) {
	checkVec("ConstantFunction.Evaluate x", x, len(c.V))
	checkVec("ConstantFunction.Evaluate f", f, len(c.V))
	copy(f, c.V)
}

func (c *ConstantFunction) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("ConstantFunction.EvaluateDeriv x", x, len(c.V))
	checkMat("ConstantFunction.EvaluateDeriv df", df, len(c.V), len(c.V))
	df.Zero()
}

// Constant returns a Function with f(x)=v and a zero Jacobian, for any x of
// matching dimension. It is the combinator form of ConstantFunction; use
// ConstantFunction directly when the value must be mutated later.
func Constant(v []float64) Function { return NewConstantFunction(v) }

type identityFunc struct{ n int }

// Identity returns the n-dimensional identity: f(x)=x, Df=I.
func Identity(n int) Function { return identityFunc{n: n} }

func (f identityFunc) DimX() int { return f.n }
func (f identityFunc) DimF() int { return f.n }

func (f identityFunc) Evaluate(x, out []float64) {
	checkVec("Identity.Evaluate x", x, f.n)
	checkVec("Identity.Evaluate f", out, f.n)
	copy(out, x)
}

func (f identityFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Identity.EvaluateDeriv x", x, f.n)
	checkMat("Identity.EvaluateDeriv df", df, f.n, f.n)
	df.Zero()
	for i := 0; i < f.n; i++ {
		df.Set(i, i, 1)
	}
}
