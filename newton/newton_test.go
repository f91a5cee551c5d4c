package newton_test

import (
	"math"
	"testing"

	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/odeerr"
)

// TestSolveQuadratic drives f(x) = x^2 - 2 to zero, expecting sqrt(2).
func TestSolveQuadratic(t *testing.T) {
	f := nlfunc.Leaf(1, 1, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Mul(x[0]).SubC(2)}
	})
	x := []float64{1.0}
	if err := newton.Solve(f, x, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(x[0]-math.Sqrt2) > 1e-8 {
		t.Errorf("x = %g, want %g", x[0], math.Sqrt2)
	}
}

// TestSolveLinearSystem checks that a 2-d linear residual is solved to its
// exact root (one Newton update reaches the root of any linear f).
func TestSolveLinearSystem(t *testing.T) {
	f := nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{
			x[0].Scale(2).Add(x[1]).SubC(5),
			x[0].Sub(x[1]).SubC(1),
		}
	})
	x := []float64{0, 0}
	if err := newton.Solve(f, x, nil); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	// 2x+y=5, x-y=1 => x=2, y=1
	if math.Abs(x[0]-2) > 1e-8 || math.Abs(x[1]-1) > 1e-8 {
		t.Errorf("x = %v, want [2 1]", x)
	}
}

func TestSolveDivergesWithTightIterationCap(t *testing.T) {
	// A badly scaled, slowly-converging residual with a near-flat region
	// around the starting guess forces the iteration cap to bind.
	f := nlfunc.Leaf(1, 1, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{dual.Exp(x[0]).SubC(1e8)}
	})
	x := []float64{0}
	err := newton.Solve(f, x, &newton.Options{Tol: 1e-14, MaxIter: 1})
	if err == nil {
		t.Fatal("expected NewtonDivergence with a single allowed iteration")
	}
	var odeErr *odeerr.Error
	if !asOdeErr(err, &odeErr) || odeErr.Kind != odeerr.NewtonDivergence {
		t.Errorf("err = %v, want Kind NewtonDivergence", err)
	}
}

func asOdeErr(err error, target **odeerr.Error) bool {
	e, ok := err.(*odeerr.Error)
	if ok {
		*target = e
	}
	return ok
}

func TestCallbackInvoked(t *testing.T) {
	f := nlfunc.Leaf(1, 1, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Mul(x[0]).SubC(4)}
	})
	var calls int
	opts := newton.DefaultOptions()
	opts.Callback = func(iter int, residualNorm float64) { calls++ }
	x := []float64{1.0}
	if err := newton.Solve(f, x, opts); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if calls == 0 {
		t.Error("callback was never invoked")
	}
}
