package backtest

// ShiftPositions delays the target sequence by exactly one bar:
// held(t) = target(t-1) for t >= 1, held(0) = 0.
//
// This encodes next-bar execution — a signal observed at bar t is acted
// on no earlier than bar t+1, so the pipeline can never trade on
// information that did not exist at decision time. The lag is fixed at
// one bar; making it configurable would change the meaning of every
// downstream number, not just a parameter.
func ShiftPositions(targets []int) []int {
	held := make([]int, len(targets))
	for t := 1; t < len(targets); t++ {
		held[t] = targets[t-1]
	}
	return held
}
