// Package trace is the ambient diagnostic sink wired into newton.Options'
// Callback: it accumulates messages during a run and writes them to Output
// only once the run finishes, the same buffer-then-flush shape as the
// teacher's own simulation Logger.
package trace

import (
	"fmt"
	"io"
	"strings"
)

// Log accumulates formatted messages and flushes them to Output in one
// write. The zero value is not usable; construct one with New.
type Log struct {
	Output io.Writer
	buf    strings.Builder
}

// New returns a Log that writes to w on Flush.
func New(w io.Writer) *Log {
	return &Log{Output: w}
}

// Logf appends a formatted message to the buffer. Messages are not written
// to Output until Flush is called.
func (l *Log) Logf(format string, a ...interface{}) {
	fmt.Fprintf(&l.buf, format, a...)
}

// Flush writes the accumulated buffer to Output and resets it.
func (l *Log) Flush() {
	io.WriteString(l.Output, l.buf.String())
	l.buf.Reset()
}

// NewtonCallback returns a newton.Options.Callback that logs every
// iteration's residual norm through l.
func (l *Log) NewtonCallback() func(iter int, residualNorm float64) {
	return func(iter int, residualNorm float64) {
		l.Logf("newton: iter %d residual=%g\n", iter, residualNorm)
	}
}
