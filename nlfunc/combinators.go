package nlfunc

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/soypat/odual/odeerr"
)

// sumFunc computes alpha*a(x) + beta*b(x).
type sumFunc struct {
	a, b       Function
	alpha, beta float64
}

// Sum returns alpha*a + beta*b. a and b must share DimX and DimF, else the
// call returns a ShapeMismatch error.
func Sum(alpha float64, a Function, beta float64, b Function) (Function, error) {
	if a.DimX() != b.DimX() || a.DimF() != b.DimF() {
		return nil, odeerr.New(odeerr.ShapeMismatch,
			"Sum: %dx%d vs %dx%d", a.DimF(), a.DimX(), b.DimF(), b.DimX())
	}
	return &sumFunc{a: a, b: b, alpha: alpha, beta: beta}, nil
}

func (s *sumFunc) DimX() int { return s.a.DimX() }
func (s *sumFunc) DimF() int { return s.a.DimF() }

func (s *sumFunc) Evaluate(x, f []float64) {
	checkVec("Sum.Evaluate x", x, s.DimX())
	checkVec("Sum.Evaluate f", f, s.DimF())
	tmp := make([]float64, s.DimF())
	s.a.Evaluate(x, f)
	floats.Scale(s.alpha, f)
	s.b.Evaluate(x, tmp)
	floats.AddScaled(f, s.beta, tmp)
}

func (s *sumFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Sum.EvaluateDeriv x", x, s.DimX())
	checkMat("Sum.EvaluateDeriv df", df, s.DimF(), s.DimX())
	s.a.EvaluateDeriv(x, df)
	df.Scale(s.alpha, df)
	tmp := mat.NewDense(s.DimF(), s.DimX(), nil)
	s.b.EvaluateDeriv(x, tmp)
	tmp.Scale(s.beta, tmp)
	df.Add(df, tmp)
}

// scaleFunc computes p.Value * a(x), with p a shared, mutable Parameter.
type scaleFunc struct {
	p *Parameter
	a Function
}

// Scale returns the Function x -> p.Value*a(x). p is read at every
// evaluation, so mutating p.Value rescales the combinator in place — this
// is how ImplicitEuler, CrankNicolson and the implicit Runge-Kutta stepper
// fold the step size τ
// into a residual built once at construction.
func Scale(p *Parameter, a Function) Function {
	return &scaleFunc{p: p, a: a}
}

func (s *scaleFunc) DimX() int { return s.a.DimX() }
func (s *scaleFunc) DimF() int { return s.a.DimF() }

func (s *scaleFunc) Evaluate(x, f []float64) {
	s.a.Evaluate(x, f)
	floats.Scale(s.p.Value, f)
}

func (s *scaleFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	s.a.EvaluateDeriv(x, df)
	df.Scale(s.p.Value, df)
}

// composeFunc computes a(b(x)), chain-ruled as Da(b(x)) * Db(x).
type composeFunc struct {
	a, b Function
}

// Compose returns a∘b: x -> a(b(x)). b.DimF() must equal a.DimX(), else the
// call returns a ShapeMismatch error.
func Compose(a, b Function) (Function, error) {
	if b.DimF() != a.DimX() {
		return nil, odeerr.New(odeerr.ShapeMismatch,
			"Compose: b.DimF()=%d != a.DimX()=%d", b.DimF(), a.DimX())
	}
	return &composeFunc{a: a, b: b}, nil
}

func (c *composeFunc) DimX() int { return c.b.DimX() }
func (c *composeFunc) DimF() int { return c.a.DimF() }

func (c *composeFunc) Evaluate(x, f []float64) {
	checkVec("Compose.Evaluate x", x, c.DimX())
	checkVec("Compose.Evaluate f", f, c.DimF())
	mid := make([]float64, c.b.DimF())
	c.b.Evaluate(x, mid)
	c.a.Evaluate(mid, f)
}

func (c *composeFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Compose.EvaluateDeriv x", x, c.DimX())
	checkMat("Compose.EvaluateDeriv df", df, c.DimF(), c.DimX())
	mid := make([]float64, c.b.DimF())
	c.b.Evaluate(x, mid)

	jacB := mat.NewDense(c.b.DimF(), c.b.DimX(), nil)
	c.b.EvaluateDeriv(x, jacB)
	jacA := mat.NewDense(c.a.DimF(), c.a.DimX(), nil)
	c.a.EvaluateDeriv(mid, jacA)

	df.Mul(jacA, jacB)
}

// embedFunc places a's output into a window of a larger output vector,
// reading a's input from a window of a larger input vector; entries outside
// both windows are zero (and their Jacobian rows/columns are zero too).
type embedFunc struct {
	a          Function
	x0, f0     int
	dimX, dimF int
}

// Embed wraps a so that its input is read from x[x0:x0+a.DimX()] of a
// dimX-vector and its output is written to f[f0:f0+a.DimF()] of a
// dimF-vector, with everything else held at zero. It returns ShapeMismatch
// if the requested window doesn't fit inside the given dimensions.
func Embed(a Function, x0, dimX, f0, dimF int) (Function, error) {
	if x0 < 0 || x0+a.DimX() > dimX {
		return nil, odeerr.New(odeerr.ShapeMismatch,
			"Embed: x window [%d,%d) doesn't fit in dimX=%d", x0, x0+a.DimX(), dimX)
	}
	if f0 < 0 || f0+a.DimF() > dimF {
		return nil, odeerr.New(odeerr.ShapeMismatch,
			"Embed: f window [%d,%d) doesn't fit in dimF=%d", f0, f0+a.DimF(), dimF)
	}
	return &embedFunc{a: a, x0: x0, f0: f0, dimX: dimX, dimF: dimF}, nil
}

func (e *embedFunc) DimX() int { return e.dimX }
func (e *embedFunc) DimF() int { return e.dimF }

func (e *embedFunc) Evaluate(x, f []float64) {
	checkVec("Embed.Evaluate x", x, e.dimX)
	checkVec("Embed.Evaluate f", f, e.dimF)
	for i := range f {
		f[i] = 0
	}
	inner := make([]float64, e.a.DimF())
	e.a.Evaluate(x[e.x0:e.x0+e.a.DimX()], inner)
	copy(f[e.f0:e.f0+e.a.DimF()], inner)
}

func (e *embedFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Embed.EvaluateDeriv x", x, e.dimX)
	checkMat("Embed.EvaluateDeriv df", df, e.dimF, e.dimX)
	df.Zero()
	inner := mat.NewDense(e.a.DimF(), e.a.DimX(), nil)
	e.a.EvaluateDeriv(x[e.x0:e.x0+e.a.DimX()], inner)
	for i := 0; i < e.a.DimF(); i++ {
		for j := 0; j < e.a.DimX(); j++ {
			df.Set(e.f0+i, e.x0+j, inner.At(i, j))
		}
	}
}

// projectorFunc selects a contiguous block of x through to f unchanged,
// zeroing every other entry.
type projectorFunc struct {
	n, first, next int
}

// Projector returns the n-dimensional Function that copies x[first:next]
// into the matching positions of f and zeroes the rest: a diagonal selection
// matrix with ones on [first,next) and zero elsewhere.
func Projector(n, first, next int) Function {
	return projectorFunc{n: n, first: first, next: next}
}

func (p projectorFunc) DimX() int { return p.n }
func (p projectorFunc) DimF() int { return p.n }

func (p projectorFunc) Evaluate(x, f []float64) {
	checkVec("Projector.Evaluate x", x, p.n)
	checkVec("Projector.Evaluate f", f, p.n)
	for i := range f {
		f[i] = 0
	}
	copy(f[p.first:p.next], x[p.first:p.next])
}

func (p projectorFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("Projector.EvaluateDeriv x", x, p.n)
	checkMat("Projector.EvaluateDeriv df", df, p.n, p.n)
	df.Zero()
	for i := p.first; i < p.next; i++ {
		df.Set(i, i, 1)
	}
}

// multipleFunc replicates a into k independent, block-diagonal copies.
type multipleFunc struct {
	a Function
	k int
}

// Multiple returns the block-diagonal Function built from k independent
// copies of a: DimX()=k*a.DimX(), DimF()=k*a.DimF(), each block evaluated
// against its own slice of x with zero coupling between blocks. This is how
// the implicit Runge-Kutta stepper packs s simultaneous stage equations for
// a Newton solve over all stages at once.
func Multiple(a Function, k int) Function {
	return &multipleFunc{a: a, k: k}
}

func (m *multipleFunc) DimX() int { return m.k * m.a.DimX() }
func (m *multipleFunc) DimF() int { return m.k * m.a.DimF() }

func (m *multipleFunc) Evaluate(x, f []float64) {
	nx, nf := m.a.DimX(), m.a.DimF()
	checkVec("Multiple.Evaluate x", x, m.DimX())
	checkVec("Multiple.Evaluate f", f, m.DimF())
	for blk := 0; blk < m.k; blk++ {
		m.a.Evaluate(x[blk*nx:(blk+1)*nx], f[blk*nf:(blk+1)*nf])
	}
}

func (m *multipleFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	nx, nf := m.a.DimX(), m.a.DimF()
	checkVec("Multiple.EvaluateDeriv x", x, m.DimX())
	checkMat("Multiple.EvaluateDeriv df", df, m.DimF(), m.DimX())
	df.Zero()
	inner := mat.NewDense(nf, nx, nil)
	for blk := 0; blk < m.k; blk++ {
		m.a.EvaluateDeriv(x[blk*nx:(blk+1)*nx], inner)
		for i := 0; i < nf; i++ {
			for j := 0; j < nx; j++ {
				df.Set(blk*nf+i, blk*nx+j, inner.At(i, j))
			}
		}
	}
}

// matVecFunc applies a fixed r x c matrix A to n independent columns packed
// into a single vector: x holds a c x n matrix (row-major, row i = variable
// i across all n columns), f holds the resulting r x n matrix in the same
// layout.
type matVecFunc struct {
	a    *mat.Dense
	n    int
	r, c int
}

// MatVec returns the Function that left-multiplies A against n independent
// column vectors packed row-major into x (and f): this is how the implicit
// Runge-Kutta stepper turns the Butcher A matrix into a linear
// coupling of s stage derivative vectors without writing the Kronecker
// product out by hand.
func MatVec(a *mat.Dense, n int) Function {
	r, c := a.Dims()
	return &matVecFunc{a: a, n: n, r: r, c: c}
}

func (m *matVecFunc) DimX() int { return m.c * m.n }
func (m *matVecFunc) DimF() int { return m.r * m.n }

func (m *matVecFunc) Evaluate(x, f []float64) {
	checkVec("MatVec.Evaluate x", x, m.DimX())
	checkVec("MatVec.Evaluate f", f, m.DimF())
	xmat := mat.NewDense(m.c, m.n, x)
	fmat := mat.NewDense(m.r, m.n, f)
	fmat.Mul(m.a, xmat)
}

func (m *matVecFunc) EvaluateDeriv(x []float64, df *mat.Dense) {
	checkVec("MatVec.EvaluateDeriv x", x, m.DimX())
	checkMat("MatVec.EvaluateDeriv df", df, m.DimF(), m.DimX())
	df.Zero()
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			aij := m.a.At(i, j)
			if aij == 0 {
				continue
			}
			for k := 0; k < m.n; k++ {
				df.Set(i*m.n+k, j*m.n+k, aij)
			}
		}
	}
}
