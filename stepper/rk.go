package stepper

import (
	"github.com/soypat/odual/butcher"
	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
)

// ExplicitRK implements the explicit Runge-Kutta recurrence for a tableau
// with a strictly lower-triangular A: stages are evaluated sequentially,
//
//	k_i = f(y + τ·Σ_{j<i} A_ij·k_j)
//	y ← y + τ·Σ_i b_i·k_i
type ExplicitRK struct {
	rhs nlfunc.Function
	tab butcher.Tableau
	n   int
	k   [][]float64
	ytmp []float64
}

// NewExplicitRK builds an explicit Runge-Kutta stepper for rhs driven by
// tab. tab.A is assumed strictly lower-triangular; entries on or above the
// diagonal are simply never read.
func NewExplicitRK(rhs nlfunc.Function, tab butcher.Tableau) *ExplicitRK {
	n := mustSquare(rhs)
	s := tab.Stages()
	k := make([][]float64, s)
	for i := range k {
		k[i] = make([]float64, n)
	}
	return &ExplicitRK{rhs: rhs, tab: tab, n: n, k: k, ytmp: make([]float64, n)}
}

func (s *ExplicitRK) DimY() int { return s.n }

func (s *ExplicitRK) Step(tau float64, y []float64) error {
	mustLen(y, s.n)
	stages := s.tab.Stages()
	for i := 0; i < stages; i++ {
		copy(s.ytmp, y)
		for j := 0; j < i; j++ {
			aij := s.tab.A.At(i, j)
			if aij == 0 {
				continue
			}
			addScaledTo(s.ytmp, s.ytmp, tau*aij, s.k[j])
		}
		s.rhs.Evaluate(s.ytmp, s.k[i])
	}
	for i := 0; i < stages; i++ {
		addScaledTo(y, y, tau*s.tab.B[i], s.k[i])
	}
	return nil
}

// ImplicitRK implements the fully-implicit Runge-Kutta recurrence: all s
// stage vectors K_i are solved jointly as one s·n-dimensional Newton system
//
//	K - Multiple(f,s)(broadcast(y) + τ·MatVec(A,n)(K)) = 0
//
// built once at construction and, like ImplicitEuler, driven each Step by
// mutating the τ Parameter and the y-broadcast ConstantFunction in place.
type ImplicitRK struct {
	rhs      nlfunc.Function
	tab      butcher.Tableau
	n, s     int
	tau      *nlfunc.Parameter
	yBcast   *nlfunc.ConstantFunction
	residual nlfunc.Function
	opts     *newton.Options
	tiled    []float64
	K        []float64
	f0       []float64
}

// NewImplicitRK builds an implicit Runge-Kutta stepper for rhs driven by
// tab.
func NewImplicitRK(rhs nlfunc.Function, tab butcher.Tableau, opts *newton.Options) *ImplicitRK {
	n := mustSquare(rhs)
	s := tab.Stages()

	tau := nlfunc.NewParameter(0)
	yBcast := nlfunc.NewConstantFunction(make([]float64, s*n))

	matVec := nlfunc.MatVec(tab.A, n)
	scaledMatVec := nlfunc.Scale(tau, matVec)
	arg, err := nlfunc.Sum(1, yBcast, 1, scaledMatVec)
	if err != nil {
		throwf("stepper.NewImplicitRK: %v", err)
	}
	stacked := nlfunc.Multiple(rhs, s)
	composed, err := nlfunc.Compose(stacked, arg)
	if err != nil {
		throwf("stepper.NewImplicitRK: %v", err)
	}
	residual, err := nlfunc.Sum(1, nlfunc.Identity(s*n), -1, composed)
	if err != nil {
		throwf("stepper.NewImplicitRK: %v", err)
	}

	return &ImplicitRK{
		rhs: rhs, tab: tab, n: n, s: s, tau: tau, yBcast: yBcast, residual: residual, opts: opts,
		tiled: make([]float64, s*n), K: make([]float64, s*n), f0: make([]float64, n),
	}
}

func (st *ImplicitRK) DimY() int { return st.n }

// Step solves the joint stage system via Newton, starting each stage from
// f(y). On a Newton failure y is left unchanged: the stage vector K is
// scratch, only folded back into y once the solve succeeds.
func (st *ImplicitRK) Step(tau float64, y []float64) error {
	mustLen(y, st.n)
	st.tau.Value = tau

	for i := 0; i < st.s; i++ {
		copy(st.tiled[i*st.n:(i+1)*st.n], y)
	}
	st.yBcast.Set(st.tiled)

	st.rhs.Evaluate(y, st.f0)
	for i := 0; i < st.s; i++ {
		copy(st.K[i*st.n:(i+1)*st.n], st.f0)
	}

	if err := newton.Solve(st.residual, st.K, st.opts); err != nil {
		return err
	}
	for i := 0; i < st.s; i++ {
		addScaledTo(y, y, tau*st.tab.B[i], st.K[i*st.n:(i+1)*st.n])
	}
	return nil
}
