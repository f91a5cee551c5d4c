// Package massspring adapts a network of point masses, fixed anchors and
// linear springs — optionally holonomically constrained by fixed-distance
// connectors — into nlfunc.Functions. Unconstrained systems are stepped
// through FunctionSecondOrder with any stepper in package stepper;
// constrained systems are stepped with DAEStepper.
//
// The unconstrained system packs mass accelerations only: f(x) = F(x)/m.
// Adding distance constraints switches to an index-1 DAE residual: force
// rows (still divided by mass) gain a Lagrange-multiplier term
// λ·∇g(x), and the state is extended with one λ per constraint, whose
// residual row is the UNSCALED constraint violation g(x) = ‖p2-p1‖² - L² —
// not divided by any mass, since it is an algebraic constraint, not a
// force balance.
package massspring

import (
	"fmt"

	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/nlfunc"
)

// ConnectorKind distinguishes a Connector's target collection.
type ConnectorKind int

const (
	// ConnectsFix targets MassSpringSystem.Fixes by index.
	ConnectsFix ConnectorKind = iota
	// ConnectsMass targets MassSpringSystem.Masses by index.
	ConnectsMass
)

// Connector references either a Fix or a Mass by index.
type Connector struct {
	Kind ConnectorKind
	Nr   int
}

// Fix is a fixed anchor point: it contributes position only.
type Fix struct {
	Pos []float64
}

// Mass is a point mass carrying position, velocity and acceleration state,
// each a vector of MassSpringSystem.Dim components.
type Mass struct {
	Mass float64
	Pos  []float64
	Vel  []float64
	Acc  []float64
}

// Spring connects two Connectors with a rest length and stiffness.
type Spring struct {
	Length    float64
	Stiffness float64
	C1, C2    Connector
}

// DistanceConstraint holds two Connectors at a fixed distance via a
// Lagrange multiplier.
type DistanceConstraint struct {
	Length float64
	C1, C2 Connector
}

// MassSpringSystem is a network of fixes, masses and springs in Dim spatial
// dimensions, optionally holonomically constrained.
type MassSpringSystem struct {
	Dim         int
	Fixes       []Fix
	Masses      []Mass
	Springs     []Spring
	Constraints []DistanceConstraint
	Gravity     []float64
}

// NewMassSpringSystem returns an empty system in the given number of
// spatial dimensions, with zero gravity.
func NewMassSpringSystem(dim int) *MassSpringSystem {
	return &MassSpringSystem{Dim: dim, Gravity: make([]float64, dim)}
}

// SetGravity sets the constant gravitational acceleration vector.
func (s *MassSpringSystem) SetGravity(g []float64) {
	copy(s.Gravity, g)
}

// AddFix appends a fixed anchor and returns a Connector referencing it.
func (s *MassSpringSystem) AddFix(f Fix) Connector {
	s.Fixes = append(s.Fixes, f)
	return Connector{Kind: ConnectsFix, Nr: len(s.Fixes) - 1}
}

// AddMass appends a point mass and returns a Connector referencing it.
func (s *MassSpringSystem) AddMass(m Mass) Connector {
	s.Masses = append(s.Masses, m)
	return Connector{Kind: ConnectsMass, Nr: len(s.Masses) - 1}
}

// AddSpring appends a spring between two connectors.
func (s *MassSpringSystem) AddSpring(sp Spring) int {
	s.Springs = append(s.Springs, sp)
	return len(s.Springs) - 1
}

// AddConstraint appends a fixed-distance constraint between two connectors.
func (s *MassSpringSystem) AddConstraint(c DistanceConstraint) int {
	s.Constraints = append(s.Constraints, c)
	return len(s.Constraints) - 1
}

// DimX returns the dimension of the state vector this system's Function
// operates on: Dim per mass, plus one Lagrange multiplier per constraint.
func (s *MassSpringSystem) DimX() int {
	return s.Dim*len(s.Masses) + len(s.Constraints)
}

// GetState packs every mass's position, velocity and acceleration into
// three flat Dim*len(Masses)-vectors, row-major (mass i occupies
// [i*Dim, (i+1)*Dim)).
func (s *MassSpringSystem) GetState(pos, vel, acc []float64) {
	for i, m := range s.Masses {
		copy(pos[i*s.Dim:(i+1)*s.Dim], m.Pos)
		copy(vel[i*s.Dim:(i+1)*s.Dim], m.Vel)
		copy(acc[i*s.Dim:(i+1)*s.Dim], m.Acc)
	}
}

// SetState is the inverse of GetState: it writes pos/vel/acc back into each
// Mass.
func (s *MassSpringSystem) SetState(pos, vel, acc []float64) {
	for i := range s.Masses {
		copy(s.Masses[i].Pos, pos[i*s.Dim:(i+1)*s.Dim])
		copy(s.Masses[i].Vel, vel[i*s.Dim:(i+1)*s.Dim])
		copy(s.Masses[i].Acc, acc[i*s.Dim:(i+1)*s.Dim])
	}
}

func (s *MassSpringSystem) connectorPos(x []dual.Dual, c Connector) []dual.Dual {
	pos := make([]dual.Dual, s.Dim)
	if c.Kind == ConnectsFix {
		for d := 0; d < s.Dim; d++ {
			pos[d] = dual.Constant(s.Fixes[c.Nr].Pos[d], x[0].Size())
		}
		return pos
	}
	for d := 0; d < s.Dim; d++ {
		pos[d] = x[c.Nr*s.Dim+d]
	}
	return pos
}

// Function builds the nlfunc.Function for this system: the unconstrained
// force/mass law when there are no constraints, or the index-1 DAE residual
// (forces and constraint rows packed together) when there are. Its output is
// an acceleration (or, with constraints, acceleration-plus-constraint-
// residual), a function of position alone — not directly a first-order
// y'=f(y) right-hand side. Unconstrained callers that want to drive a
// position/velocity trajectory with a stepper.Stepper should wrap it with
// FunctionSecondOrder instead of stepping Function()'s output as if it were
// a velocity.
func (s *MassSpringSystem) Function() nlfunc.Function {
	n := s.DimX()
	return nlfunc.Leaf(n, n, func(x []dual.Dual) []dual.Dual {
		return s.evaluate(x)
	})
}

// FunctionSecondOrder lifts the unconstrained acceleration law into a
// first-order ODE over the state y=(pos,vel) of dimension 2·Dim·len(Masses):
// y' = (vel, accel(pos)). It is built from Function via Embed (one copy
// reads the velocity half of y straight through to the position half of the
// derivative, the other evaluates Function on the position half and writes
// into the velocity half) and Sum, exactly the combinator-algebra recipe
// §4.B describes for assembling a composite right-hand side out of simpler
// pieces.
//
// Constrained systems have no velocity state for their Lagrange multipliers
// and so cannot be embedded this way; FunctionSecondOrder returns an error
// if any DistanceConstraint is present. Constrained callers should drive the
// full (pos,vel,λ) state with DAEStepper instead, which solves the mixed-row
// residual directly against Function()'s acceleration-plus-constraint
// output rather than treating it as a first-order rate.
func (s *MassSpringSystem) FunctionSecondOrder() (nlfunc.Function, error) {
	if len(s.Constraints) > 0 {
		return nil, fmt.Errorf("massspring: FunctionSecondOrder: constrained systems have no velocity state for their multipliers, use NewDAEStepper instead")
	}
	n := s.Dim * len(s.Masses)
	accel := s.Function()
	velPassthrough, err := nlfunc.Embed(nlfunc.Identity(n), n, 2*n, 0, 2*n)
	if err != nil {
		return nil, err
	}
	accelEmbedded, err := nlfunc.Embed(accel, 0, 2*n, n, 2*n)
	if err != nil {
		return nil, err
	}
	return nlfunc.Sum(1, velPassthrough, 1, accelEmbedded)
}

func (s *MassSpringSystem) evaluate(x []dual.Dual) []dual.Dual {
	nMasses := len(s.Masses)
	nCon := len(s.Constraints)
	size := x[0].Size()

	f := make([]dual.Dual, nMasses*s.Dim+nCon)
	for i := range f {
		f[i] = dual.Zero(size)
	}
	fAt := func(i, d int) int { return i*s.Dim + d }

	for i, m := range s.Masses {
		for d := 0; d < s.Dim; d++ {
			f[fAt(i, d)] = dual.Constant(m.Mass*s.Gravity[d], size)
		}
	}

	for _, sp := range s.Springs {
		p1 := s.connectorPos(x, sp.C1)
		p2 := s.connectorPos(x, sp.C2)
		diff := make([]dual.Dual, s.Dim)
		for d := 0; d < s.Dim; d++ {
			diff[d] = p1[d].Sub(p2[d])
		}
		dist := vecNorm(diff)
		force := dist.SubC(sp.Length).Scale(sp.Stiffness)
		dir := make([]dual.Dual, s.Dim)
		for d := 0; d < s.Dim; d++ {
			dir[d] = p2[d].Sub(p1[d]).Div(dist)
		}
		if sp.C1.Kind == ConnectsMass {
			for d := 0; d < s.Dim; d++ {
				f[fAt(sp.C1.Nr, d)] = f[fAt(sp.C1.Nr, d)].Add(force.Mul(dir[d]))
			}
		}
		if sp.C2.Kind == ConnectsMass {
			for d := 0; d < s.Dim; d++ {
				f[fAt(sp.C2.Nr, d)] = f[fAt(sp.C2.Nr, d)].Sub(force.Mul(dir[d]))
			}
		}
	}

	if nCon > 0 {
		for c, con := range s.Constraints {
			lambda := x[s.Dim*nMasses+c]
			p1 := s.connectorPos(x, con.C1)
			p2 := s.connectorPos(x, con.C2)
			diff := make([]dual.Dual, s.Dim)
			for d := 0; d < s.Dim; d++ {
				diff[d] = p2[d].Sub(p1[d])
			}
			if con.C1.Kind == ConnectsMass {
				for d := 0; d < s.Dim; d++ {
					f[fAt(con.C1.Nr, d)] = f[fAt(con.C1.Nr, d)].Sub(lambda.Mul(diff[d]).Scale(2))
				}
			}
			if con.C2.Kind == ConnectsMass {
				for d := 0; d < s.Dim; d++ {
					f[fAt(con.C2.Nr, d)] = f[fAt(con.C2.Nr, d)].Add(lambda.Mul(diff[d]).Scale(2))
				}
			}
		}
	}

	// Force rows are always force-per-mass, constrained or not.
	for i, m := range s.Masses {
		for d := 0; d < s.Dim; d++ {
			f[fAt(i, d)] = f[fAt(i, d)].Scale(1 / m.Mass)
		}
	}

	if nCon > 0 {
		for c, con := range s.Constraints {
			p1 := s.connectorPos(x, con.C1)
			p2 := s.connectorPos(x, con.C2)
			distSq := dual.Constant(0, size)
			for d := 0; d < s.Dim; d++ {
				diff := p2[d].Sub(p1[d])
				distSq = distSq.Add(diff.Mul(diff))
			}
			f[s.Dim*nMasses+c] = distSq.SubC(con.Length * con.Length)
		}
	}

	return f
}

func vecNorm(v []dual.Dual) dual.Dual {
	sum := dual.Constant(0, v[0].Size())
	for _, vi := range v {
		sum = sum.Add(vi.Mul(vi))
	}
	return dual.Sqrt(sum)
}
