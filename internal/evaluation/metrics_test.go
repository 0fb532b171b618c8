package evaluation

import (
	"math"
	"testing"
	"time"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/model"
)

func TestMaxDrawdownMagnitude(t *testing.T) {
	cases := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"monotonic rise", []float64{0, 1, 2, 3}, 0},
		{"single dip", []float64{0, 2, 1, 3}, 1},
		{"deep late drawdown", []float64{0, 5, 3, 4, 1}, 4},
		{"flat", []float64{0, 0, 0}, 0},
		{"all below start", []float64{0, -1, -3, -2}, 3},
	}
	for _, tc := range cases {
		if got := MaxDrawdownMagnitude(tc.equity); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestMaxDrawdownDuration(t *testing.T) {
	cases := []struct {
		name   string
		equity []float64
		want   int
	}{
		{"monotonic rise", []float64{0, 1, 2, 3}, 0},
		{"one bar under water", []float64{0, 2, 1, 3}, 1},
		{"recovered then longer", []float64{0, 3, 2, 3.5, 1, 2, 4, 5}, 2},
		// Final drawdown never recovers: counts through the last bar.
		{"open-ended drawdown", []float64{0, 2, 1, 1, 1}, 3},
	}
	for _, tc := range cases {
		if got := MaxDrawdownDuration(tc.equity); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := SharpeRatio([]float64{1, 1, 1, 1}, 252); got != 0 {
		t.Errorf("constant pnl has zero std, expected sharpe 0, got %v", got)
	}
	if got := SharpeRatio([]float64{0.5}, 252); got != 0 {
		t.Errorf("single observation, expected 0, got %v", got)
	}

	if got := SharpeRatio([]float64{1, -1, 1, -1}, 252); math.Abs(got) > 1e-9 {
		t.Errorf("zero-mean pnl, expected sharpe 0, got %v", got)
	}

	// pnl {0, 2}: mean 1, sample std sqrt(2), sharpe = 1/sqrt(2)*sqrt(252)
	want := 1 / math.Sqrt2 * math.Sqrt(252)
	if got := SharpeRatio([]float64{0, 2}, 252); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPairTrades(t *testing.T) {
	// held = [0,0,1,1,-1,-1,1]: open long at bar 2, flip short at bar
	// 4, flip long again at bar 6 (still open at series end).
	res, prices := runScenario(t,
		[]float64{100, 101, 99, 99, 102, 104, 101},
		[]float64{0, 1, 1, -1, -1, 1, 0},
		backtest.Config{Spread: 0.1, ShortsEnabled: true},
	)

	pairs := PairTrades(res.Trades, prices)
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}

	// Long entered by the bar-2 execution is exposed from the bar-1
	// close (101) and exits at the bar-3 close (99).
	long := pairs[0]
	if !long.Closed || long.OpenChange != 1 || long.OpenIndex != 2 || long.CloseIndex != 4 {
		t.Errorf("long pair malformed: %+v", long)
	}
	if math.Abs(long.PnL()-(-2)) > 1e-9 {
		t.Errorf("long pair pnl: expected -2 (101→99), got %v", long.PnL())
	}

	short := pairs[1]
	if !short.Closed || short.OpenChange != -1 || short.OpenIndex != 4 || short.CloseIndex != 6 {
		t.Errorf("short pair malformed: %+v", short)
	}
	if math.Abs(short.PnL()-(-5)) > 1e-9 {
		t.Errorf("short pair pnl: expected -5 (short 99→104), got %v", short.PnL())
	}

	if pairs[2].Closed {
		t.Errorf("final pair should remain open, got %+v", pairs[2])
	}

	if NumberOfTradePairs(pairs) != 2 {
		t.Errorf("expected 2 closed pairs, got %d", NumberOfTradePairs(pairs))
	}
	if w := Winrate(pairs); w != 0 {
		t.Errorf("both closed pairs lost, expected winrate 0, got %v", w)
	}
	if h := AverageHoldingBars(pairs); math.Abs(h-2) > 1e-9 {
		t.Errorf("expected avg holding 2 bars, got %v", h)
	}
}

func TestPairTrades_OpenTail(t *testing.T) {
	res, prices := runScenario(t,
		[]float64{100, 101, 103},
		[]float64{1, 1, 1},
		backtest.Config{Spread: 0, ShortsEnabled: true},
	)
	pairs := PairTrades(res.Trades, prices)
	if len(pairs) != 1 || pairs[0].Closed {
		t.Fatalf("expected one open pair, got %+v", pairs)
	}
	if NumberOfTradePairs(pairs) != 0 {
		t.Errorf("open pair must not count, got %d", NumberOfTradePairs(pairs))
	}
	if Winrate(pairs) != 0 || AverageHoldingBars(pairs) != 0 {
		t.Errorf("no closed pairs: winrate and holding must be 0")
	}
}

func runScenario(t *testing.T, prices, signals []float64, cfg backtest.Config) (*backtest.Result, model.PriceSeries) {
	t.Helper()
	start := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	ps := make(model.PriceSeries, len(prices))
	ss := make(model.SignalSeries, len(signals))
	for i := range prices {
		ts := start.Add(time.Duration(i) * time.Minute)
		ps[i] = model.PricePoint{TS: ts, Price: prices[i]}
		ss[i] = model.SignalPoint{TS: ts, Value: signals[i]}
	}
	res, err := backtest.Run(ps, ss, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res, ps
}

func TestVerifyPnLInvariant(t *testing.T) {
	res, prices := runScenario(t,
		[]float64{100, 101, 99, 99, 102, 104, 101},
		[]float64{0, 1, 1, -1, -1, 1, 0},
		backtest.Config{Spread: 0.1, ShortsEnabled: true},
	)
	if err := VerifyPnLInvariant(res, prices); err != nil {
		t.Errorf("invariant should hold on a consistent run: %v", err)
	}

	// Corrupt the equity curve: the invariant must catch it.
	res.Equity[len(res.Equity)-1] += 1
	if err := VerifyPnLInvariant(res, prices); err == nil {
		t.Error("expected invariant violation after tampering with equity")
	}
}

func TestEvaluate_Summary(t *testing.T) {
	res, prices := runScenario(t,
		[]float64{100, 101, 99, 99, 102},
		[]float64{0, 1, 1, -1, -1},
		backtest.Config{Spread: 0.1, ShortsEnabled: true},
	)
	sum := Evaluate(res, prices, 252)
	if math.Abs(sum.FinalEquity-(-5.3)) > 1e-9 {
		t.Errorf("final equity: expected -5.3, got %v", sum.FinalEquity)
	}
	if sum.Trades != 2 {
		t.Errorf("expected 2 trades, got %d", sum.Trades)
	}
	if sum.TradePairs != 1 {
		t.Errorf("expected 1 closed pair (flip), got %d", sum.TradePairs)
	}
	if sum.MaxDrawdown < 5.3-1e-9 {
		t.Errorf("expected max drawdown >= 5.3, got %v", sum.MaxDrawdown)
	}
}
