package backtest

import "backtest-systemv1/internal/model"

// AccountTrades detects position changes between consecutive bars and
// charges the spread for each.
//
// For t >= 1, delta(t) = held(t) - held(t-1); a nonzero delta is a
// trade costing spread * |delta| — a flip from +1 to -1 crosses two
// units and pays double. Bar 0 has no predecessor and by convention no
// trade. Costs are charged at the bar of execution, never deferred.
//
// Returns the per-bar cost sequence (same length as held) and the
// trade-event list.
func AccountTrades(held []int, prices model.PriceSeries, spread float64) ([]float64, []model.TradeEvent) {
	costs := make([]float64, len(held))
	var trades []model.TradeEvent
	for t := 1; t < len(held); t++ {
		delta := held[t] - held[t-1]
		if delta == 0 {
			continue
		}
		cost := spread * float64(abs(delta))
		costs[t] = cost
		trades = append(trades, model.TradeEvent{
			Index: t,
			TS:    prices[t].TS,
			Price: prices[t].Price,
			Delta: delta,
			Cost:  cost,
		})
	}
	return costs, trades
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
