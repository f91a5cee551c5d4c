// Command pendulumdemo integrates the simple pendulum
//
//	theta'     = theta-dot
//	theta-dot' = -(g/l)*sin(theta)
//
// with a choice of stepper, printing time/theta/theta-dot triples to
// stdout. It replaces the teacher's faiface/pixel graphical demo with a
// headless trajectory dump, driven by this module's own nlfunc/stepper
// stack instead of a symbol-keyed simulation config.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/soypat/odual/dual"
	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/stepper"
	"github.com/soypat/odual/trace"
)

func main() {
	var (
		length    = flag.Float64("length", 1.0, "pendulum length in meters")
		gravity   = flag.Float64("gravity", 9.81, "gravitational acceleration in m/s^2")
		theta0Deg = flag.Float64("theta0", 20, "initial angular displacement in degrees")
		tEnd      = flag.Float64("tend", 8, "simulation end time in seconds")
		steps     = flag.Int("steps", 200, "number of integration steps")
		method    = flag.String("method", "improved-euler", "explicit-euler|improved-euler|implicit-euler|crank-nicolson")
		verbose   = flag.Bool("v", false, "log Newton diagnostics for implicit methods")
	)
	flag.Parse()

	rhs := nlfunc.Leaf(2, 2, func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{
			x[1],
			dual.Sin(x[0]).Scale(-*gravity / *length),
		}
	})

	var newtonOpts *newton.Options
	if *verbose {
		log := trace.New(os.Stderr)
		newtonOpts = newton.DefaultOptions()
		newtonOpts.Callback = log.NewtonCallback()
		defer log.Flush()
	}

	step, err := buildStepper(*method, rhs, newtonOpts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	const degToRad = 3.141592653589793 / 180
	y := []float64{*theta0Deg * degToRad, 0}
	ts := stepper.NewTimespan(0, *tEnd, *steps)

	fmt.Printf("%-12s %-12s %-12s\n", "time", "theta", "theta_dot")
	err = stepper.Run(step, ts, y, func(i int, t float64, y []float64) {
		fmt.Printf("%-12.6f %-12.6f %-12.6f\n", t, y[0], y[1])
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
