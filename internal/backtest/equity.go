package backtest

import "backtest-systemv1/internal/model"

// AccumulateEquity marks held positions to market and cumulates per-bar
// PnL into the equity curve.
//
// pnl(t) = held(t) * (price(t) - price(t-1)) - cost(t) for t >= 1.
// held(t) is already lag-shifted: the position entered at the bar-t
// close earns the move from the t-1 close into the t close. Using
// held(t-1) here instead would double the lag and desynchronize the
// whole pipeline — the timing convention must match the shifter's.
//
// Equity starts at 0 (pure PnL accounting, no initial capital). A
// position still open at the final bar is marked through the final
// close; no closing trade or cost is synthesized at series end.
//
// Returns the equity curve and the per-bar PnL contributions, both the
// same length as the inputs.
func AccumulateEquity(held []int, prices model.PriceSeries, costs []float64) ([]float64, []float64) {
	equity := make([]float64, len(prices))
	pnl := make([]float64, len(prices))
	for t := 1; t < len(prices); t++ {
		pnl[t] = float64(held[t])*(prices[t].Price-prices[t-1].Price) - costs[t]
		equity[t] = equity[t-1] + pnl[t]
	}
	return equity, pnl
}
