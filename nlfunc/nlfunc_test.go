package nlfunc_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/nlfunc"
)

// pendulum reproduces PendulumAD: f(alpha, alpha') = (alpha', -(g/l)*sin(alpha)).
func pendulum(length, gravity float64) nlfunc.Function {
	return nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{
			x[1],
			dual.Sin(x[0]).Scale(-gravity / length),
		}
	})
}

func TestPendulumJacobianMatchesAnalytic(t *testing.T) {
	const length, gravity = 1.0, 9.81
	p := pendulum(length, gravity)

	x := []float64{math.Pi / 4, 0.5}
	f := make([]float64, 2)
	p.Evaluate(x, f)
	if math.Abs(f[0]-0.5) > 1e-12 {
		t.Errorf("f[0] = %g, want 0.5", f[0])
	}
	wantF1 := -(gravity / length) * math.Sin(x[0])
	if math.Abs(f[1]-wantF1) > 1e-12 {
		t.Errorf("f[1] = %g, want %g", f[1], wantF1)
	}

	df := mat.NewDense(2, 2, nil)
	p.EvaluateDeriv(x, df)
	want := [2][2]float64{
		{0, 1},
		{-(gravity / length) * math.Cos(x[0]), 0},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got := df.At(i, j); math.Abs(got-want[i][j]) > 1e-9 {
				t.Errorf("df[%d][%d] = %g, want %g", i, j, got, want[i][j])
			}
		}
	}
}

// checkJacobian cross-checks a Function's AD Jacobian against gonum's
// finite-difference Jacobian, the independent oracle demanded of any new
// nonlinear term.
func checkJacobian(t *testing.T, f nlfunc.Function, x []float64, tol float64) {
	t.Helper()
	got := mat.NewDense(f.DimF(), f.DimX(), nil)
	f.EvaluateDeriv(x, got)

	want := mat.NewDense(f.DimF(), f.DimX(), nil)
	fd.Jacobian(want, func(dst, xv []float64) {
		f.Evaluate(xv, dst)
	}, x, &fd.JacobianSettings{Formula: fd.Central})

	r, c := got.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			g, w := got.At(i, j), want.At(i, j)
			if math.Abs(g-w) > tol {
				t.Errorf("Jacobian[%d][%d] = %g, finite-difference wants %g", i, j, g, w)
			}
		}
	}
}

func TestPendulumJacobianAgreesWithFiniteDifference(t *testing.T) {
	p := pendulum(1.3, 9.81)
	checkJacobian(t, p, []float64{0.7, -0.2}, 1e-6)
}

func TestIdentity(t *testing.T) {
	id := nlfunc.Identity(3)
	x := []float64{1, 2, 3}
	f := make([]float64, 3)
	id.Evaluate(x, f)
	for i := range x {
		if f[i] != x[i] {
			t.Errorf("Identity.Evaluate[%d] = %g, want %g", i, f[i], x[i])
		}
	}
	df := mat.NewDense(3, 3, nil)
	id.EvaluateDeriv(x, df)
	if !mat.Equal(df, mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})) {
		t.Errorf("Identity Jacobian != I: %v", mat.Formatted(df))
	}
}

func TestConstantFunction(t *testing.T) {
	c := nlfunc.NewConstantFunction([]float64{5, -2})
	x := []float64{100, -100}
	f := make([]float64, 2)
	c.Evaluate(x, f)
	if f[0] != 5 || f[1] != -2 {
		t.Errorf("ConstantFunction.Evaluate = %v, want [5 -2]", f)
	}
	c.Set([]float64{1, 1})
	c.Evaluate(x, f)
	if f[0] != 1 || f[1] != 1 {
		t.Errorf("after Set, ConstantFunction.Evaluate = %v, want [1 1]", f)
	}
}

func TestSumAndScale(t *testing.T) {
	a := nlfunc.Identity(2)
	b := nlfunc.NewConstantFunction([]float64{1, 1})
	sum, err := nlfunc.Sum(2, a, -3, b)
	if err != nil {
		t.Fatal(err)
	}
	x := []float64{4, 5}
	f := make([]float64, 2)
	sum.Evaluate(x, f)
	// 2*x - 3*[1,1]
	want := []float64{2*4 - 3, 2*5 - 3}
	for i := range want {
		if math.Abs(f[i]-want[i]) > 1e-12 {
			t.Errorf("Sum.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}

	p := nlfunc.NewParameter(0.5)
	scaled := nlfunc.Scale(p, a)
	scaled.Evaluate(x, f)
	if math.Abs(f[0]-2) > 1e-12 || math.Abs(f[1]-2.5) > 1e-12 {
		t.Errorf("Scale.Evaluate = %v, want [2 2.5]", f)
	}
	p.Value = 2
	scaled.Evaluate(x, f)
	if math.Abs(f[0]-8) > 1e-12 || math.Abs(f[1]-10) > 1e-12 {
		t.Errorf("after mutating Parameter, Scale.Evaluate = %v, want [8 10]", f)
	}
}

func TestComposeShapeMismatch(t *testing.T) {
	a := nlfunc.Identity(3)
	b := nlfunc.Identity(2)
	if _, err := nlfunc.Compose(a, b); err == nil {
		t.Fatal("expected ShapeMismatch error composing dim-3 after dim-2")
	}
}

func TestCompose(t *testing.T) {
	// a: R^2 -> R^2 doubling; b: R^2 -> R^2 identity plus offset.
	a := nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Scale(2), x[1].Scale(2)}
	})
	b := nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].AddC(1), x[1].AddC(1)}
	})
	composed, err := nlfunc.Compose(a, b)
	if err != nil {
		t.Fatal(err)
	}
	x := []float64{3, 4}
	f := make([]float64, 2)
	composed.Evaluate(x, f)
	want := []float64{2 * (3 + 1), 2 * (4 + 1)}
	for i := range want {
		if math.Abs(f[i]-want[i]) > 1e-12 {
			t.Errorf("Compose.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}
	checkJacobian(t, composed, x, 1e-6)
}

func TestEmbed(t *testing.T) {
	inner := nlfunc.Identity(2)
	embedded, err := nlfunc.Embed(inner, 1, 4, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	x := []float64{100, 2, 3, 100}
	f := make([]float64, 4)
	embedded.Evaluate(x, f)
	want := []float64{0, 2, 3, 0}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("Embed.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}
}

func TestProjector(t *testing.T) {
	p := nlfunc.Projector(4, 1, 3)
	x := []float64{9, 9, 9, 9}
	f := make([]float64, 4)
	p.Evaluate(x, f)
	want := []float64{0, 9, 9, 0}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("Projector.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}
}

func TestMultiple(t *testing.T) {
	base := nlfunc.Leaf(1, 1, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Mul(x[0])}
	})
	rep := nlfunc.Multiple(base, 3)
	x := []float64{1, 2, 3}
	f := make([]float64, 3)
	rep.Evaluate(x, f)
	want := []float64{1, 4, 9}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("Multiple.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}
	checkJacobian(t, rep, x, 1e-6)
}

func TestMatVec(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	mv := nlfunc.MatVec(a, 2) // 2 independent columns
	x := []float64{1, 0, 0, 1}
	f := make([]float64, 4)
	mv.Evaluate(x, f)
	// column 0 of x is (1,0) -> A*(1,0) = (1,3); column 1 is (0,1) -> A*(0,1) = (2,4)
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if math.Abs(f[i]-want[i]) > 1e-12 {
			t.Errorf("MatVec.Evaluate[%d] = %g, want %g", i, f[i], want[i])
		}
	}
	checkJacobian(t, mv, x, 1e-6)
}
