package nlfunc

import (
	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/dual"
)

// Evaluator is the user-supplied body of a Leaf: it computes f from x once,
// written purely in terms of Dual arithmetic. Leaf calls it twice — with
// size-0 constant duals to get Evaluate's plain float64 result, and with
// Variable duals of size dimX to get EvaluateDeriv's Jacobian — so the same
// code serves both the value and the derivative, without a parallel
// float64-only implementation.
type Evaluator func(x []dual.Dual) []dual.Dual

type leaf struct {
	dimX, dimF int
	eval       Evaluator
}

// Leaf builds a Function whose value and Jacobian are both derived from a
// single Dual-valued body. This is the AD-backed default for any nonlinear
// term that doesn't already have a closed-form Jacobian wired up as a
// hand-built Function.
func Leaf(dimX, dimF int, eval Evaluator) Function {
	return &leaf{dimX: dimX, dimF: dimF, eval: eval}
}

func (l *leaf) DimX() int { return l.dimX }
func (l *leaf) DimF() int { return l.dimF }

func (l *leaf) Evaluate(x, f []float64) {
	checkVec("Leaf.Evaluate x", x, l.dimX)
	checkVec("Leaf.Evaluate f", f, l.dimF)
	xd := make([]dual.Dual, l.dimX)
	for i, xi := range x {
		xd[i] = dual.Constant(xi, 0)
	}
	fd := l.eval(xd)
	checkVec("Leaf.Evaluate eval result", fd, l.dimF)
	for i := range f {
		f[i] = fd[i].Value()
	}
}

func (l *leaf) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Leaf.EvaluateDeriv x", x, l.dimX)
	checkMat("Leaf.EvaluateDeriv df", df, l.dimF, l.dimX)
	xd := make([]dual.Dual, l.dimX)
	for i, xi := range x {
		xd[i] = dual.Variable(xi, i, l.dimX)
	}
	fd := l.eval(xd)
	checkVec("Leaf.EvaluateDeriv eval result", fd, l.dimF)
	for i := 0; i < l.dimF; i++ {
		for j := 0; j < l.dimX; j++ {
			df.Set(i, j, fd[i].At(j))
		}
	}
}
