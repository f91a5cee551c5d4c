package stepper

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// addScaledTo performs dst = y + alpha*s element-wise and returns dst.
func addScaledTo(dst, y []float64, alpha float64, s []float64) []float64 {
	return floats.AddScaledTo(dst, y, alpha, s)
}

// throwf panics on a programmer-error misuse of a stepper or Timespan
// (non-square rhs, wrong state length, empty or reversed Timespan, a
// residual graph that fails to assemble): conditions a caller is
// expected to have already guarded against, as opposed to the odeerr.Error
// values a stepper's Step method can return from Newton's own failure
// modes.
func throwf(format string, a ...interface{}) {
	panic(fmt.Errorf(format, a...))
}
