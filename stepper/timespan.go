package stepper

// Timespan is an evenly spaced time domain: Steps intervals of length Dt
// between Start and End. It carries no per-run state, only the domain.
type Timespan struct {
	start      float64
	end        float64
	steps      int
	stepLength float64
}

// NewTimespan builds a Timespan of the given number of steps between start
// and end. Steps must be at least 1 and end must exceed start.
func NewTimespan(start, end float64, steps int) Timespan {
	if start >= end {
		throwf("stepper.NewTimespan: start must be < end, got %v >= %v", start, end)
	}
	if steps < 1 {
		throwf("stepper.NewTimespan: steps must be >= 1, got %v", steps)
	}
	return Timespan{start: start, end: end, steps: steps, stepLength: (end - start) / float64(steps)}
}

// Len returns the number of steps in the span.
func (ts Timespan) Len() int { return ts.steps }

// Dt returns the (constant) step length.
func (ts Timespan) Dt() float64 { return ts.stepLength }

// Start returns the lower time bound.
func (ts Timespan) Start() float64 { return ts.start }

// End returns the upper time bound.
func (ts Timespan) End() float64 { return ts.end }

// Run advances y by calling s.Step once per step of ts, invoking onStep
// (if non-nil) with the step index (1-based, 0 being the initial state
// reported before the loop starts) and the current time after each step.
// It stops and returns the first error any Step call produces.
func Run(s Stepper, ts Timespan, y []float64, onStep func(i int, t float64, y []float64)) error {
	if onStep != nil {
		onStep(0, ts.Start(), y)
	}
	dt := ts.Dt()
	for i := 1; i <= ts.Len(); i++ {
		if err := s.Step(dt, y); err != nil {
			return err
		}
		if onStep != nil {
			onStep(i, ts.Start()+float64(i)*dt, y)
		}
	}
	return nil
}
