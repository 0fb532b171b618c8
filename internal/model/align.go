package model

import "math"

// AlignSignals projects a signal series onto a price series' time grid.
//
// Each price bar carries the latest signal whose timestamp is strictly
// earlier than the bar's timestamp. Exact matches are excluded: a signal
// stamped at the bar close is not observable at that close, and allowing
// it would leak future information into the bar. Bars before the first
// usable signal carry NaN (the no-signal marker).
//
// Both inputs must be individually valid; the output shares the price
// series' timestamps and can be fed to the backtest directly.
func AlignSignals(prices PriceSeries, signals SignalSeries) (SignalSeries, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if err := signals.Validate(); err != nil {
		return nil, err
	}

	out := make(SignalSeries, len(prices))
	j := 0 // index of the next signal not yet behind the current bar
	for i, p := range prices {
		for j < len(signals) && signals[j].TS.Before(p.TS) {
			j++
		}
		out[i].TS = p.TS
		if j == 0 {
			out[i].Value = math.NaN()
		} else {
			out[i].Value = signals[j-1].Value
		}
	}
	return out, nil
}
