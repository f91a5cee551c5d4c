// Package butcher builds the Butcher tableaux (A, b, c) consumed by the
// explicit and implicit Runge-Kutta steppers in package stepper.
//
// Node generation reuses package dual rather than a hand-differentiated
// Legendre recursion: the same "evaluate once, differentiate by evaluating
// on duals" trick used throughout this toolkit finds a polynomial's root by
// Newton-iterating on its own AD-computed derivative.
package butcher

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/odeerr"
)

// Tableau is a Runge-Kutta method of s stages: the s x s coupling matrix A,
// the s weights b and the s nodes c.
type Tableau struct {
	A *mat.Dense
	B []float64
	C []float64
}

// Stages returns the number of stages s.
func (t Tableau) Stages() int { return len(t.C) }

// NewTableau packages A, b, c into a Tableau, checking that their shapes
// agree. It returns a ShapeMismatch error otherwise.
func NewTableau(a *mat.Dense, b, c []float64) (Tableau, error) {
	s := len(c)
	if len(b) != s {
		return Tableau{}, odeerr.New(odeerr.ShapeMismatch, "NewTableau: len(b)=%d, len(c)=%d", len(b), s)
	}
	r, cc := a.Dims()
	if r != s || cc != s {
		return Tableau{}, odeerr.New(odeerr.ShapeMismatch, "NewTableau: A is %dx%d, want %dx%d", r, cc, s, s)
	}
	return Tableau{A: a, B: b, C: c}, nil
}

// legendre evaluates the degree-n Legendre polynomial P_n at x via the
// standard three-term recursion, carried through Dual so P_n's value and
// derivative come out of the same computation.
func legendre(n int, x dual.Dual) dual.Dual {
	p0 := dual.Constant(1, x.Size())
	if n == 0 {
		return p0
	}
	p1 := x
	for k := 1; k < n; k++ {
		kf := float64(k)
		next := x.Mul(p1).Scale(2*kf + 1).Sub(p0.Scale(kf)).Scale(1 / (kf + 1))
		p0, p1 = p1, next
	}
	return p1
}

// newtonRoot1D finds a root of f near x0 via plain (undamped) Newton
// iteration, using f's own Dual-computed derivative.
func newtonRoot1D(f func(dual.Dual) dual.Dual, x0 float64) float64 {
	x := x0
	for iter := 0; iter < 100; iter++ {
		fx := f(dual.Variable(x, 0, 1))
		if math.Abs(fx.Value()) < 1e-15 {
			break
		}
		x -= fx.Value() / fx.At(0)
	}
	return x
}

// GaussLegendreNodes returns the s-stage Gauss-Legendre nodes c (in (0,1))
// and weights b (summing to 1), the tableau of the highest-order A-stable
// implicit Runge-Kutta family for a given stage count. Call ComputeABfromC
// on the returned c to get the coupling matrix A.
func GaussLegendreNodes(s int) (c, b []float64) {
	c = make([]float64, s)
	b = make([]float64, s)
	for i := 0; i < s; i++ {
		// Chebyshev initial guess for the i-th root of P_s on [-1,1].
		guess := -math.Cos(math.Pi * (float64(i) + 0.75) / (float64(s) + 0.5))
		root := newtonRoot1D(func(x dual.Dual) dual.Dual { return legendre(s, x) }, guess)

		xd := dual.Variable(root, 0, 1)
		pn := legendre(s, xd)
		deriv := pn.At(0)
		w := 2 / ((1 - root*root) * deriv * deriv)

		c[i] = (root + 1) / 2
		b[i] = w / 2
	}
	return c, b
}

// GaussRadauNodes returns the s-stage Radau IIA nodes c, with c[s-1]=1
// exactly. The companion weights b are derived from the general moment
// conditions (see ComputeABfromC) rather than a closed form: callers that
// need the full (A,b,c) tableau should feed c into ComputeABfromC, which is
// the authoritative construction; the b returned here is a convenience for
// quadrature-only uses.
func GaussRadauNodes(s int) (c, b []float64) {
	c = make([]float64, s)
	if s == 1 {
		c[0] = 1
		return c, []float64{1}
	}
	// Radau IIA nodes on [-1,1] are the roots of P_{s-1}(x) - P_s(x), which
	// has x=1 as an exact root; the remaining s-1 roots lie in (-1,1).
	q := func(x dual.Dual) dual.Dual { return legendre(s-1, x).Sub(legendre(s, x)) }
	for i := 0; i < s-1; i++ {
		guess := -math.Cos(math.Pi * (float64(i) + 0.5) / (float64(s) - 0.5))
		root := newtonRoot1D(q, guess)
		c[i] = (root + 1) / 2
	}
	c[s-1] = 1
	b = quadratureWeights(c)
	return c, b
}

// quadratureWeights solves the moment conditions sum_j b_j*c_j^k = 1/(k+1),
// k=0..s-1, the condition any order-s quadrature rule on [0,1] with nodes c
// must satisfy.
func quadratureWeights(c []float64) []float64 {
	s := len(c)
	m := mat.NewDense(s, s, nil)
	rhs := mat.NewVecDense(s, nil)
	for k := 0; k < s; k++ {
		for j := 0; j < s; j++ {
			m.Set(k, j, math.Pow(c[j], float64(k)))
		}
		rhs.SetVec(k, 1/(float64(k)+1))
	}
	var b mat.VecDense
	if err := b.SolveVec(m, rhs); err != nil {
		panic(fmt.Sprintf("butcher: quadratureWeights: singular Vandermonde system for c=%v: %v", c, err))
	}
	return b.RawVector().Data
}

// ComputeABfromC derives the coupling matrix A and weights b of the
// collocation Runge-Kutta method with nodes c: row i of A and b both solve
// a Vandermonde system built from the moment conditions of the collocation
// polynomial through c, the construction used for every implicit tableau in
// this package (Gauss-Legendre, Radau IIA, or any other hand-supplied c).
func ComputeABfromC(c []float64) (a *mat.Dense, b []float64) {
	s := len(c)
	m := mat.NewDense(s, s, nil)
	for k := 0; k < s; k++ {
		for j := 0; j < s; j++ {
			m.Set(k, j, math.Pow(c[j], float64(k)))
		}
	}

	a = mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		rhs := mat.NewVecDense(s, nil)
		for k := 0; k < s; k++ {
			rhs.SetVec(k, math.Pow(c[i], float64(k+1))/(float64(k)+1))
		}
		var row mat.VecDense
		if err := row.SolveVec(m, rhs); err != nil {
			panic(fmt.Sprintf("butcher: ComputeABfromC: singular Vandermonde system for c=%v: %v", c, err))
		}
		a.SetRow(i, row.RawVector().Data)
	}

	b = quadratureWeights(c)
	return a, b
}

// ClassicalRK4 returns the classical explicit 4-stage, order-4 Runge-Kutta
// tableau.
func ClassicalRK4() Tableau {
	a := mat.NewDense(4, 4, []float64{
		0, 0, 0, 0,
		0.5, 0, 0, 0,
		0, 0.5, 0, 0,
		0, 0, 1, 0,
	})
	b := []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6}
	c := []float64{0, 0.5, 0.5, 1}
	t, err := NewTableau(a, b, c)
	if err != nil {
		panic(err) // shapes are constants above; a mismatch is a programmer error.
	}
	return t
}
