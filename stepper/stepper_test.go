package stepper_test

import (
	"math"
	"testing"

	"github.com/soypat/odual/butcher"
	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/stepper"
)

// exponentialDecay is f(y) = -y, with exact solution y(t) = y0*exp(-t).
func exponentialDecay() nlfunc.Function {
	return nlfunc.Leaf(1, 1, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Neg()}
	})
}

// harmonicOscillator is f(x,v) = (v, -(k/m)*x).
func harmonicOscillator(k, m float64) nlfunc.Function {
	return nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[1], x[0].Scale(-k / m)}
	})
}

func integrate(t *testing.T, s stepper.Stepper, y0 []float64, tau float64, steps int) []float64 {
	t.Helper()
	y := append([]float64(nil), y0...)
	for i := 0; i < steps; i++ {
		if err := s.Step(tau, y); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	return y
}

func TestExplicitEulerOrderOne(t *testing.T) {
	f := exponentialDecay()
	const T = 1.0
	errAt := func(steps int) float64 {
		y := integrate(t, stepper.NewExplicitEuler(f), []float64{1}, T/float64(steps), steps)
		return math.Abs(y[0] - math.Exp(-T))
	}
	e1, e2 := errAt(100), errAt(200)
	ratio := e1 / e2
	if ratio < 1.7 || ratio > 2.3 {
		t.Errorf("doubling steps should roughly halve error for order-1 method, got ratio %g", ratio)
	}
}

func TestImprovedEulerOrderTwo(t *testing.T) {
	f := exponentialDecay()
	const T = 1.0
	errAt := func(steps int) float64 {
		y := integrate(t, stepper.NewImprovedEuler(f), []float64{1}, T/float64(steps), steps)
		return math.Abs(y[0] - math.Exp(-T))
	}
	e1, e2 := errAt(50), errAt(100)
	ratio := e1 / e2
	if ratio < 3.5 || ratio > 4.5 {
		t.Errorf("doubling steps should roughly quarter error for order-2 method, got ratio %g", ratio)
	}
}

func TestImplicitEulerConvergesAndIsStable(t *testing.T) {
	f := exponentialDecay()
	// A large step size that would make explicit Euler blow up (|1-tau|>1)
	// is perfectly stable under implicit Euler.
	y := integrate(t, stepper.NewImplicitEuler(f, nil), []float64{1}, 5.0, 50)
	if math.Abs(y[0]-math.Exp(-250)) > 1e-6 {
		t.Errorf("y = %g, want ~%g", y[0], math.Exp(-250))
	}
}

func TestCrankNicolsonConservesEnergy(t *testing.T) {
	const k, m = 1.0, 1.0
	f := harmonicOscillator(k, m)
	s := stepper.NewCrankNicolson(f, nil)
	y := []float64{1, 0}
	energy := func(y []float64) float64 { return 0.5*y[1]*y[1] + 0.5*(k/m)*y[0]*y[0] }
	e0 := energy(y)
	for i := 0; i < 2000; i++ {
		if err := s.Step(0.01, y); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if math.Abs(energy(y)-e0) > 1e-6 {
		t.Errorf("energy drifted from %g to %g over 2000 Crank-Nicolson steps", e0, energy(y))
	}
}

func TestExplicitRKMatchesClassicalRK4(t *testing.T) {
	f := exponentialDecay()
	s := stepper.NewExplicitRK(f, butcher.ClassicalRK4())
	y := integrate(t, s, []float64{1}, 0.1, 10)
	want := math.Exp(-1)
	if math.Abs(y[0]-want) > 1e-6 {
		t.Errorf("y = %g, want %g", y[0], want)
	}
}

func TestImplicitRKGaussLegendreTwoStage(t *testing.T) {
	c, _ := butcher.GaussLegendreNodes(2)
	a, b := butcher.ComputeABfromC(c)
	tab, err := butcher.NewTableau(a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	f := exponentialDecay()
	s := stepper.NewImplicitRK(f, tab, nil)
	y := integrate(t, s, []float64{1}, 0.05, 20)
	want := math.Exp(-1)
	if math.Abs(y[0]-want) > 1e-6 {
		t.Errorf("y = %g, want %g (order-4 2-stage Gauss method over 20 steps of 0.05)", y[0], want)
	}
}

func TestImplicitRKHarmonicOscillatorStaysBounded(t *testing.T) {
	const k, m = 1.0, 1.0
	c, _ := butcher.GaussRadauNodes(2)
	a, b := butcher.ComputeABfromC(c)
	tab, err := butcher.NewTableau(a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	f := harmonicOscillator(k, m)
	s := stepper.NewImplicitRK(f, tab, nil)
	y := []float64{1, 0}
	for i := 0; i < 500; i++ {
		if err := s.Step(0.05, y); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		r := math.Hypot(y[0], y[1])
		if r > 1.5 {
			t.Fatalf("step %d: amplitude %g escaped bound, Radau IIA should be strongly A-stable here", i, r)
		}
	}
}
