package backtest

import (
	"fmt"

	"backtest-systemv1/internal/model"
)

// Config holds the run parameters.
type Config struct {
	// Spread is the flat absolute cost charged per unit of position
	// change at execution (a +1→-1 flip crosses two units and pays
	// 2*Spread). It is not a fraction of price. Must be >= 0.
	Spread float64 `json:"spread"`

	// ShortsEnabled allows negative positions; when false a negative
	// signal maps to flat instead of short.
	ShortsEnabled bool `json:"shorts_enabled"`
}

// Result is the full output of one backtest run. All sequences share
// the input series' length and index alignment.
type Result struct {
	Equity []float64          `json:"equity"` // cumulative PnL, Equity[0] == 0
	Held   []int              `json:"held"`   // position held during each bar, Held[0] == 0
	PnL    []float64          `json:"pnl"`    // per-bar mark-to-market contribution
	Trades []model.TradeEvent `json:"trades"`
}

// Run executes the full pipeline: resolve targets, shift one bar,
// account trades and costs, accumulate equity.
//
// Inputs are validated eagerly; on any failure Run returns an error
// wrapping model.ErrInvalidInput or model.ErrConfiguration and no
// partial result. The computation is deterministic — identical inputs
// produce identical outputs.
func Run(prices model.PriceSeries, signals model.SignalSeries, cfg Config) (*Result, error) {
	if cfg.Spread < 0 {
		return nil, fmt.Errorf("%w: negative spread %v", model.ErrConfiguration, cfg.Spread)
	}
	if err := model.ValidateAligned(prices, signals); err != nil {
		return nil, err
	}

	targets := ResolveTargets(signals, cfg.ShortsEnabled)
	held := ShiftPositions(targets)
	costs, trades := AccountTrades(held, prices, cfg.Spread)
	equity, pnl := AccumulateEquity(held, prices, costs)

	return &Result{
		Equity: equity,
		Held:   held,
		PnL:    pnl,
		Trades: trades,
	}, nil
}
