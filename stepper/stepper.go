// Package stepper implements the time-integration schemes built on top of
// package nlfunc's residual algebra and package newton's solver: explicit
// and improved Euler, implicit Euler, Crank-Nicolson, and the generic
// explicit/implicit Runge-Kutta families driven by a butcher.Tableau.
package stepper

import (
	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
)

// Stepper advances a state vector y by a fixed step τ.
type Stepper interface {
	// DimY returns the dimension of the state vector this stepper advances.
	DimY() int
	// Step advances y in place by τ. Implicit steppers may return a
	// *odeerr.Error from the underlying Newton solve.
	Step(tau float64, y []float64) error
}

// ExplicitEuler implements y ← y + τ·f(y).
type ExplicitEuler struct {
	rhs nlfunc.Function
	n   int
	f   []float64
}

// NewExplicitEuler builds an explicit-Euler stepper for rhs, which must be
// square (DimX()==DimF()).
func NewExplicitEuler(rhs nlfunc.Function) *ExplicitEuler {
	n := mustSquare(rhs)
	return &ExplicitEuler{rhs: rhs, n: n, f: make([]float64, n)}
}

func (s *ExplicitEuler) DimY() int { return s.n }

func (s *ExplicitEuler) Step(tau float64, y []float64) error {
	mustLen(y, s.n)
	s.rhs.Evaluate(y, s.f)
	addScaledTo(y, y, tau, s.f)
	return nil
}

// ImprovedEuler implements the explicit midpoint rule:
//
//	ŷ = y + (τ/2)·f(y)
//	y ← y + τ·f(ŷ)
type ImprovedEuler struct {
	rhs  nlfunc.Function
	n    int
	f    []float64
	yhat []float64
}

// NewImprovedEuler builds an improved-Euler (midpoint) stepper for rhs.
func NewImprovedEuler(rhs nlfunc.Function) *ImprovedEuler {
	n := mustSquare(rhs)
	return &ImprovedEuler{rhs: rhs, n: n, f: make([]float64, n), yhat: make([]float64, n)}
}

func (s *ImprovedEuler) DimY() int { return s.n }

func (s *ImprovedEuler) Step(tau float64, y []float64) error {
	mustLen(y, s.n)
	s.rhs.Evaluate(y, s.f)
	addScaledTo(s.yhat, y, tau/2, s.f)
	s.rhs.Evaluate(s.yhat, s.f)
	addScaledTo(y, y, tau, s.f)
	return nil
}

// ImplicitEuler implements the backward-Euler residual
//
//	R(y_new) = y_new - y_old - τ·f(y_new)
//
// built once at construction time: τ and y_old are held in mutable
// Parameter/ConstantFunction boxes that Step overwrites before each Newton
// solve, rather than rebuilding the residual graph every step.
type ImplicitEuler struct {
	n     int
	tau   *nlfunc.Parameter
	yOld  *nlfunc.ConstantFunction
	equ   nlfunc.Function
	opts  *newton.Options
	guess []float64
}

// NewImplicitEuler builds an implicit-Euler stepper for rhs. opts may be
// nil, in which case newton.DefaultOptions() governs every Newton solve.
func NewImplicitEuler(rhs nlfunc.Function, opts *newton.Options) *ImplicitEuler {
	n := mustSquare(rhs)
	tau := nlfunc.NewParameter(0)
	yOld := nlfunc.NewConstantFunction(make([]float64, n))

	scaledRHS := nlfunc.Scale(tau, rhs)
	idMinusOld, err := nlfunc.Sum(1, nlfunc.Identity(n), -1, yOld)
	if err != nil {
		throwf("stepper.NewImplicitEuler: %v", err)
	}
	equ, err := nlfunc.Sum(1, idMinusOld, -1, scaledRHS)
	if err != nil {
		throwf("stepper.NewImplicitEuler: %v", err)
	}
	return &ImplicitEuler{n: n, tau: tau, yOld: yOld, equ: equ, opts: opts, guess: make([]float64, n)}
}

func (s *ImplicitEuler) DimY() int { return s.n }

// Step solves the backward-Euler residual for y_new starting from the
// current y. On a Newton failure y is left unchanged: the iterate is
// refined in a scratch buffer and only copied back on success.
func (s *ImplicitEuler) Step(tau float64, y []float64) error {
	mustLen(y, s.n)
	s.yOld.Set(y)
	s.tau.Value = tau
	copy(s.guess, y)
	if err := newton.Solve(s.equ, s.guess, s.opts); err != nil {
		return err
	}
	copy(y, s.guess)
	return nil
}

// CrankNicolson implements the trapezoidal residual
//
//	R(y_new) = y_new - y_old - (τ/2)·(f(y_old) + f(y_new))
//
// built once at construction time, exactly like ImplicitEuler: y_old and
// f(y_old) are held in ConstantFunction boxes and τ/2 in a Parameter, all
// three overwritten by Step before each Newton solve rather than rebuilding
// the residual graph every call.
type CrankNicolson struct {
	rhs     nlfunc.Function
	n       int
	tauHalf *nlfunc.Parameter
	yOld    *nlfunc.ConstantFunction
	fOld    *nlfunc.ConstantFunction
	equ     nlfunc.Function
	opts    *newton.Options
	fOldVec []float64
	guess   []float64
}

// NewCrankNicolson builds a Crank-Nicolson stepper for rhs.
func NewCrankNicolson(rhs nlfunc.Function, opts *newton.Options) *CrankNicolson {
	n := mustSquare(rhs)
	tauHalf := nlfunc.NewParameter(0)
	yOld := nlfunc.NewConstantFunction(make([]float64, n))
	fOld := nlfunc.NewConstantFunction(make([]float64, n))

	fSum, err := nlfunc.Sum(1, fOld, 1, rhs)
	if err != nil {
		throwf("stepper.NewCrankNicolson: %v", err)
	}
	scaled := nlfunc.Scale(tauHalf, fSum)
	idMinusOld, err := nlfunc.Sum(1, nlfunc.Identity(n), -1, yOld)
	if err != nil {
		throwf("stepper.NewCrankNicolson: %v", err)
	}
	equ, err := nlfunc.Sum(1, idMinusOld, -1, scaled)
	if err != nil {
		throwf("stepper.NewCrankNicolson: %v", err)
	}
	return &CrankNicolson{
		rhs: rhs, n: n, tauHalf: tauHalf, yOld: yOld, fOld: fOld, equ: equ, opts: opts,
		fOldVec: make([]float64, n), guess: make([]float64, n),
	}
}

func (s *CrankNicolson) DimY() int { return s.n }

// Step solves the trapezoidal residual for y_new. On a Newton failure y is
// left unchanged: the solve runs against a scratch copy, committed to y
// only once Newton converges.
func (s *CrankNicolson) Step(tau float64, y []float64) error {
	mustLen(y, s.n)
	s.yOld.Set(y)
	s.rhs.Evaluate(y, s.fOldVec)
	s.fOld.Set(s.fOldVec)
	s.tauHalf.Value = 0.5 * tau

	copy(s.guess, y)
	if err := newton.Solve(s.equ, s.guess, s.opts); err != nil {
		return err
	}
	copy(y, s.guess)
	return nil
}

func mustSquare(f nlfunc.Function) int {
	if f.DimX() != f.DimF() {
		throwf("stepper: rhs must be square, got DimX=%d DimF=%d", f.DimX(), f.DimF())
	}
	return f.DimX()
}

func mustLen(y []float64, n int) {
	if len(y) != n {
		throwf("stepper: state vector has length %d, want %d", len(y), n)
	}
}
