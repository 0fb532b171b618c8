// Package backtest implements the signal→position→execution→PnL core:
// a deterministic four-stage pipeline over two aligned series that
// produces held positions, trade executions, and a mark-to-market
// equity curve.
//
// All stages are pure functions; Run composes them. Nothing here logs,
// blocks, or touches I/O.
package backtest

import (
	"math"

	"backtest-systemv1/internal/model"
)

// ResolveTargets maps each signal to a target position in {-1, 0, +1}.
//
// target(t) = +1 when signal(t) > 0, -1 when signal(t) < 0 and shorts
// are enabled, 0 otherwise. A zero signal means no directional
// preference; NaN is the no-signal marker and also maps to 0. The
// target is a pure function of the current bar's sign category, so a
// run of same-sign signals repeats the same target — holding through
// the run falls out of the fact that unchanged targets trade nothing.
func ResolveTargets(signals model.SignalSeries, shortsEnabled bool) []int {
	targets := make([]int, len(signals))
	for i, s := range signals {
		switch {
		case math.IsNaN(s.Value):
			targets[i] = 0
		case s.Value > 0:
			targets[i] = 1
		case s.Value < 0 && shortsEnabled:
			targets[i] = -1
		default:
			targets[i] = 0
		}
	}
	return targets
}
