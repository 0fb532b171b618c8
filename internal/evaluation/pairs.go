package evaluation

import "backtest-systemv1/internal/model"

// TradePair is one round trip: the execution that opened a directional
// position and the execution that closed it. A flip (+1→-1) closes the
// old pair and opens a new one at the same bar. The last pair may still
// be open when the series ends; it is excluded from closed-pair stats.
//
// OpenPrice and ClosePrice are the closes one bar before the respective
// executions. That is the price level the accounting convention
// attributes the position's PnL from: a position held during bar t
// earns price(t) - price(t-1), so an execution recorded at bar t
// exposes the trader from the bar t-1 close onward. Summing closed-pair
// PnL over these prices reproduces the bar-based accounting exactly.
type TradePair struct {
	OpenIndex  int     `json:"open_index"` // bar of the opening execution
	OpenPrice  float64 `json:"open_price"`
	OpenChange int     `json:"open_change"` // direction opened: +1 long, -1 short
	CloseIndex int     `json:"close_index"`
	ClosePrice float64 `json:"close_price"`
	Closed     bool    `json:"closed"`
}

// PnL returns the price-unit profit of a closed pair in the direction
// it was opened. Meaningless for open pairs.
func (p *TradePair) PnL() float64 {
	return (p.ClosePrice - p.OpenPrice) * float64(p.OpenChange)
}

// PairTrades reconstructs round trips from the trade-event list.
// Position size is one unit throughout, so the position after an event
// fully determines whether the event opened, closed, or flipped.
// prices must be the series the trades were produced from.
func PairTrades(trades []model.TradeEvent, prices model.PriceSeries) []TradePair {
	var pairs []TradePair
	pos := 0
	for _, tr := range trades {
		next := pos + tr.Delta
		if pos != 0 {
			last := &pairs[len(pairs)-1]
			last.CloseIndex = tr.Index
			last.ClosePrice = prices[tr.Index-1].Price
			last.Closed = true
		}
		if next != 0 {
			pairs = append(pairs, TradePair{
				OpenIndex:  tr.Index,
				OpenPrice:  prices[tr.Index-1].Price,
				OpenChange: next,
			})
		}
		pos = next
	}
	return pairs
}

// NumberOfTradePairs counts closed pairs, excluding a trailing open one.
func NumberOfTradePairs(pairs []TradePair) int {
	n := 0
	for i := range pairs {
		if pairs[i].Closed {
			n++
		}
	}
	return n
}

// Winrate returns the share of closed pairs with positive PnL.
// Returns 0 when there are no closed pairs.
func Winrate(pairs []TradePair) float64 {
	closed, wins := 0, 0
	for i := range pairs {
		if !pairs[i].Closed {
			continue
		}
		closed++
		if pairs[i].PnL() > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed)
}

// AverageHoldingBars returns the mean number of bars a closed pair was
// held. Returns 0 when there are no closed pairs.
func AverageHoldingBars(pairs []TradePair) float64 {
	closed, total := 0, 0
	for i := range pairs {
		if !pairs[i].Closed {
			continue
		}
		closed++
		total += pairs[i].CloseIndex - pairs[i].OpenIndex
	}
	if closed == 0 {
		return 0
	}
	return float64(total) / float64(closed)
}
