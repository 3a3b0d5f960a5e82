// Package obslog provides a structured logger for pass-level
// diagnostics. No other package of this module imports it; the liveness
// core and the jit consumer do not log. It is deliberately a thin
// wrapper over zap rather than a bespoke logging type, so call sites get
// zap's field-based logging and level filtering for free.
package obslog

import (
	"go.uber.org/zap"
)

// Logger is the sugared zap logger this package hands out for
// diagnostic (not user-facing) output. The invariant violations
// themselves are never logged through here — they panic via liveerr —
// this is strictly for tracing healthy pass behavior.
type Logger = zap.SugaredLogger

var nop = zap.NewNop().Sugar()

// Nop returns a logger that discards everything, the default for library
// code that hasn't been wired to a caller-supplied logger.
func Nop() *Logger { return nop }

// Development returns a human-readable, debug-level logger suitable for
// interactive use while developing allocator passes.
func Development() *Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nop
	}
	return l.Sugar()
}
