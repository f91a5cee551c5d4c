package massspring

import (
	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/odeerr"
)

// DAEStepper advances a constrained system's full state
// y = (pos, vel, λ) — dimension 2·Dim·len(Masses) + len(Constraints) — by
// implicit Euler. Unlike the generic stepper.ImplicitEuler, the residual
// is not uniform across rows: position and velocity rows take the usual
// y_new - y_old - τ·rate form, but each λ row is the bare algebraic
// constraint g(pos_new) = 0, with no y_old or τ term at all. λ is not an
// integrated state — it is an instantaneous force multiplier solved
// jointly with position and velocity at every step, so differencing it
// against its previous value has no meaning.
//
// DAEStepper implements stepper.DimY/Step structurally (without this
// package importing package stepper) and can be driven directly by
// stepper.Run.
type DAEStepper struct {
	n     int // Dim * len(Masses)
	c     int // len(Constraints)
	tau   *nlfunc.Parameter
	yOld  *nlfunc.ConstantFunction
	equ   nlfunc.Function
	opts  *newton.Options
	guess []float64
}

// NewDAEStepper builds an implicit-Euler stepper over sys's full
// position/velocity/multiplier state. sys must have at least one
// DistanceConstraint; unconstrained systems have no λ state and should use
// FunctionSecondOrder with a generic stepper instead. opts may be nil, in
// which case newton.DefaultOptions() governs every Newton solve.
func NewDAEStepper(sys *MassSpringSystem, opts *newton.Options) (*DAEStepper, error) {
	if len(sys.Constraints) == 0 {
		return nil, odeerr.New(odeerr.DimensionMismatch,
			"massspring: NewDAEStepper: system has no constraints, use FunctionSecondOrder with a generic stepper instead")
	}
	n := sys.Dim * len(sys.Masses)
	c := len(sys.Constraints)
	dim := 2*n + c

	tau := nlfunc.NewParameter(0)
	yOld := nlfunc.NewConstantFunction(make([]float64, dim))

	equ := nlfunc.Leaf(dim, dim, func(y []dual.Dual) []dual.Dual {
		size := y[0].Size()
		tauD := dual.Constant(tau.Value, size)

		pos := y[0:n]
		vel := y[n : 2*n]
		posLambda := make([]dual.Dual, n+c)
		copy(posLambda[:n], pos)
		copy(posLambda[n:], y[2*n:2*n+c])
		accelAndG := sys.evaluate(posLambda)

		r := make([]dual.Dual, dim)
		for i := 0; i < n; i++ {
			r[i] = pos[i].SubC(yOld.V[i]).Sub(tauD.Mul(vel[i]))
		}
		for i := 0; i < n; i++ {
			r[n+i] = vel[i].SubC(yOld.V[n+i]).Sub(tauD.Mul(accelAndG[i]))
		}
		for i := 0; i < c; i++ {
			r[2*n+i] = accelAndG[n+i]
		}
		return r
	})

	return &DAEStepper{
		n:     n,
		c:     c,
		tau:   tau,
		yOld:  yOld,
		equ:   equ,
		opts:  opts,
		guess: make([]float64, dim),
	}, nil
}

// DimY returns 2*Dim*len(Masses) + len(Constraints).
func (s *DAEStepper) DimY() int { return 2*s.n + s.c }

// Step solves the mixed-row DAE residual for y_new starting from the
// current y. On a Newton failure y is left unchanged.
func (s *DAEStepper) Step(tau float64, y []float64) error {
	if len(y) != s.DimY() {
		panic(odeerr.New(odeerr.DimensionMismatch, "massspring: DAEStepper.Step: state vector has wrong length"))
	}
	copy(s.yOld.V, y)
	s.tau.Value = tau
	copy(s.guess, y)
	if err := newton.Solve(s.equ, s.guess, s.opts); err != nil {
		return err
	}
	copy(y, s.guess)
	return nil
}
