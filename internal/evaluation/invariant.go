package evaluation

import (
	"fmt"
	"math"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/model"
)

// VerifyPnLInvariant cross-checks the two independent PnL accountings:
// bar-based (held position times price change, summed) and trade-based
// (realized PnL of closed pairs plus the open pair marked to the final
// close). Both must agree gross of costs, and the final equity must be
// the gross figure minus total spread costs. Returns nil when the run
// is internally consistent.
func VerifyPnLInvariant(res *backtest.Result, prices model.PriceSeries) error {
	var gross float64
	for t := 1; t < len(prices); t++ {
		gross += float64(res.Held[t]) * (prices[t].Price - prices[t-1].Price)
	}

	var totalCost float64
	for _, tr := range res.Trades {
		totalCost += tr.Cost
	}

	pairs := PairTrades(res.Trades, prices)
	var tradeBased float64
	for i := range pairs {
		if pairs[i].Closed {
			tradeBased += pairs[i].PnL()
			continue
		}
		// Mark the remaining open position to the final close.
		lastPrice := prices[len(prices)-1].Price
		tradeBased += (lastPrice - pairs[i].OpenPrice) * float64(pairs[i].OpenChange)
	}

	if math.Abs(gross-tradeBased) > 1e-6 {
		return fmt.Errorf("pnl invariant violated: bar-based %v != trade-based %v", gross, tradeBased)
	}

	finalEquity := res.Equity[len(res.Equity)-1]
	if math.Abs(finalEquity-(gross-totalCost)) > 1e-6 {
		return fmt.Errorf("equity invariant violated: final equity %v != gross %v - costs %v",
			finalEquity, gross, totalCost)
	}
	return nil
}

// Evaluate computes the full summary for one run.
func Evaluate(res *backtest.Result, prices model.PriceSeries, anFactor float64) Summary {
	pairs := PairTrades(res.Trades, prices)
	return Summary{
		FinalEquity:    res.Equity[len(res.Equity)-1],
		Sharpe:         SharpeRatio(res.PnL, anFactor),
		MaxDrawdown:    MaxDrawdownMagnitude(res.Equity),
		MaxDrawdownDur: MaxDrawdownDuration(res.Equity),
		Trades:         len(res.Trades),
		TradePairs:     NumberOfTradePairs(pairs),
		Winrate:        Winrate(pairs),
		AvgHoldingBars: AverageHoldingBars(pairs),
	}
}
