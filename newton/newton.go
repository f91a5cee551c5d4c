// Package newton implements a Newton-Raphson solver over the
// nlfunc.Function abstraction, used by every implicit time-stepper to drive
// a residual to zero at each step. Each iteration takes the full Newton
// update; no damping or step halving is applied.
//
// The linear solve at each iteration is delegated to
// gonum.org/v1/exp/linsolve's GMRES, the same iterative solver the teacher
// reaches for in its own NewtonRaphsonSolver; the dense Jacobian is banded
// via denseToBand before the call for the same reason the teacher does it:
// linsolve.Iterative wants a mat.Matrix that can report a bandwidth, and a
// dense Jacobian's true bandwidth is unknown to gonum without it.
package newton

import (
	"math"

	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/odeerr"
)

// Options configures a Newton solve. The zero value is not valid; use
// DefaultOptions to get sane defaults and override individual fields.
type Options struct {
	// Tol is the convergence tolerance applied to both the residual norm
	// ‖F(x)‖∞ and the update norm ‖Δx‖∞. Both must fall below Tol for the
	// solve to report success.
	Tol float64
	// MaxIter bounds the number of Newton iterations attempted before the
	// solve reports NewtonDivergence.
	MaxIter int
	// Callback, if non-nil, is invoked at the start of every iteration,
	// before the update, with the 0-based iteration index and the residual
	// norm at the current iterate — wired to package trace
	// by callers that want diagnostic logging.
	Callback func(iter int, residualNorm float64)
}

// DefaultOptions returns the solver's default tolerance (1e-10) and
// iteration cap (10), matching the teacher's own IterationMax default.
func DefaultOptions() *Options {
	return &Options{Tol: 1e-10, MaxIter: 10}
}

// Solve drives f(x)=0 to within opts' tolerance, starting from and
// overwriting x in place. opts may be nil, in which case DefaultOptions()
// is used.
//
// Convergence requires both ‖F(x)‖∞ < Tol and ‖Δx‖∞ < Tol in the same
// iteration — checking the residual alone can pass right before a step that
// still moves x substantially, and checking the update alone can pass on a
// stalled iterate that hasn't actually zeroed F.
//
// Solve returns a *odeerr.Error of Kind NewtonSingularJacobian if the
// linear solve fails, or of Kind NewtonDivergence if MaxIter is exhausted
// without both criteria being satisfied.
func Solve(f nlfunc.Function, x []float64, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	n := f.DimX()
	if f.DimF() != n {
		return odeerr.New(odeerr.ShapeMismatch, "newton.Solve: f is %dx%d, must be square", f.DimF(), n)
	}

	fx := make([]float64, n)
	jac := mat.NewDense(n, n, nil)
	dx := make([]float64, n)

	for iter := 0; ; iter++ {
		f.Evaluate(x, fx)
		resNorm := floats.Norm(fx, math.Inf(1))
		if opts.Callback != nil {
			opts.Callback(iter, resNorm)
		}

		f.EvaluateDeriv(x, jac)
		band := denseToBand(jac)
		b := mat.NewVecDense(n, fx)
		result, err := linsolve.Iterative(band, b, &linsolve.GMRES{}, &linsolve.Settings{MaxIterations: 2 * n})
		if err != nil {
			return odeerr.Wrap(odeerr.NewtonSingularJacobian, err, "newton.Solve: linear solve failed at iteration %d", iter)
		}
		copy(dx, result.X.RawVector().Data)
		dxNorm := floats.Norm(dx, math.Inf(1))
		floats.Sub(x, dx)

		if resNorm < opts.Tol && dxNorm < opts.Tol {
			return nil
		}
		if iter+1 >= opts.MaxIter {
			return odeerr.New(odeerr.NewtonDivergence,
				"newton.Solve: no convergence after %d iterations, ‖F‖=%g ‖Δx‖=%g", opts.MaxIter, resNorm, dxNorm)
		}
	}
}

func denseToBand(d *mat.Dense) *mat.BandDense {
	r, c := d.Dims()
	b := mat.NewBandDense(r, c, r-1, c-1, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			b.SetBand(i, j, d.At(i, j))
		}
	}
	return b
}
