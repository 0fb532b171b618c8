// Package evaluation computes performance metrics over a backtest
// result: return-based statistics on the equity curve and trade-based
// statistics on paired executions.
package evaluation

import "math"

// closeEnough mirrors the tolerance used when deciding whether equity
// sits exactly at its running peak.
const closeEnough = 1e-9

// SharpeRatio returns the annualized Sharpe ratio of per-bar PnL
// contributions. anFactor is the number of bars per year (252 for
// daily bars). Returns 0 when the standard deviation is ~0.
func SharpeRatio(pnl []float64, anFactor float64) float64 {
	if len(pnl) < 2 {
		return 0
	}
	var sum float64
	for _, r := range pnl {
		sum += r
	}
	mean := sum / float64(len(pnl))

	var ss float64
	for _, r := range pnl {
		d := r - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / float64(len(pnl)-1))
	if sigma < closeEnough {
		return 0
	}
	return mean / sigma * math.Sqrt(anFactor)
}

// MaxDrawdownMagnitude returns the largest drop of the equity curve
// below its running peak.
func MaxDrawdownMagnitude(equity []float64) float64 {
	var peak, maxDD float64
	for i, e := range equity {
		if i == 0 || e > peak {
			peak = e
		}
		if dd := peak - e; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// MaxDrawdownDuration returns the longest stretch of consecutive bars
// spent below the running equity peak, in bars. A drawdown still open
// at the final bar counts through the final bar. Returns 0 when equity
// never leaves its peak.
func MaxDrawdownDuration(equity []float64) int {
	var peak float64
	longest, run := 0, 0
	for i, e := range equity {
		if i == 0 || e > peak {
			peak = e
		}
		if peak-e > closeEnough {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// Summary bundles the evaluation of one run for reporting and
// persistence.
type Summary struct {
	FinalEquity    float64 `json:"final_equity"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownDur int     `json:"max_drawdown_bars"`
	Trades         int     `json:"trades"`
	TradePairs     int     `json:"trade_pairs"`
	Winrate        float64 `json:"winrate"`
	AvgHoldingBars float64 `json:"avg_holding_bars"`
}
