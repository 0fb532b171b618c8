package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"backtest-systemv1/internal/model"
)

func makeSeries(prices []float64, signals []float64) (model.PriceSeries, model.SignalSeries) {
	start := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	ps := make(model.PriceSeries, len(prices))
	ss := make(model.SignalSeries, len(signals))
	for i, p := range prices {
		ps[i] = model.PricePoint{TS: start.Add(time.Duration(i) * time.Minute), Price: p}
	}
	for i, s := range signals {
		ss[i] = model.SignalPoint{TS: start.Add(time.Duration(i) * time.Minute), Value: s}
	}
	return ps, ss
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestRun_ScenarioShortsEnabled(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 101, 99, 99, 102},
		[]float64{0, 1, 1, -1, -1},
	)

	res, err := Run(prices, signals, Config{Spread: 0.1, ShortsEnabled: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantHeld := []int{0, 0, 1, 1, -1}
	for i, h := range wantHeld {
		if res.Held[i] != h {
			t.Errorf("held[%d]: expected %d, got %d", i, h, res.Held[i])
		}
	}

	wantEquity := []float64{0, 0, -2.1, -2.1, -5.3}
	if !floatsEqual(res.Equity, wantEquity) {
		t.Errorf("equity: expected %v, got %v", wantEquity, res.Equity)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].Index != 2 || res.Trades[0].Delta != 1 || math.Abs(res.Trades[0].Cost-0.1) > 1e-9 {
		t.Errorf("trade 0: expected bar 2 delta +1 cost 0.1, got %+v", res.Trades[0])
	}
	if res.Trades[1].Index != 4 || res.Trades[1].Delta != -2 || math.Abs(res.Trades[1].Cost-0.2) > 1e-9 {
		t.Errorf("trade 1: expected bar 4 delta -2 cost 0.2, got %+v", res.Trades[1])
	}
}

func TestRun_ScenarioShortsDisabled(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 101, 99, 99, 102},
		[]float64{0, 1, 1, -1, -1},
	)

	res, err := Run(prices, signals, Config{Spread: 0.1, ShortsEnabled: false})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantHeld := []int{0, 0, 1, 1, 0}
	for i, h := range wantHeld {
		if res.Held[i] != h {
			t.Errorf("held[%d]: expected %d, got %d", i, h, res.Held[i])
		}
	}

	// Closing long→flat crosses one unit: cost 0.1, not a flip's 0.2.
	wantEquity := []float64{0, 0, -2.1, -2.1, -2.2}
	if !floatsEqual(res.Equity, wantEquity) {
		t.Errorf("equity: expected %v, got %v", wantEquity, res.Equity)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[1].Delta != -1 || math.Abs(res.Trades[1].Cost-0.1) > 1e-9 {
		t.Errorf("closing trade: expected delta -1 cost 0.1, got %+v", res.Trades[1])
	}
}

func TestRun_SingleBar(t *testing.T) {
	prices, signals := makeSeries([]float64{100}, []float64{1})

	res, err := Run(prices, signals, Config{Spread: 0.1, ShortsEnabled: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Equity) != 1 || res.Equity[0] != 0 {
		t.Errorf("expected equity [0], got %v", res.Equity)
	}
	if res.Held[0] != 0 {
		t.Errorf("expected held [0], got %v", res.Held)
	}
	if len(res.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(res.Trades))
	}
}

func TestRun_Deterministic(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 102, 101, 103, 99, 98, 104},
		[]float64{1, -1, 0, 1, 1, -1, 0},
	)
	cfg := Config{Spread: 0.05, ShortsEnabled: true}

	r1, err := Run(prices, signals, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r2, err := Run(prices, signals, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := range r1.Equity {
		if r1.Equity[i] != r2.Equity[i] {
			t.Fatalf("equity[%d] differs between identical runs: %v vs %v", i, r1.Equity[i], r2.Equity[i])
		}
	}
}

func TestRun_ZeroSignalIdempotence(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 150, 50, 200, 25},
		[]float64{0, 0, 0, 0, 0},
	)

	res, err := Run(prices, signals, Config{Spread: 0.1, ShortsEnabled: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := range res.Held {
		if res.Held[i] != 0 {
			t.Errorf("held[%d]: expected 0, got %d", i, res.Held[i])
		}
		if res.Equity[i] != 0 {
			t.Errorf("equity[%d]: expected 0, got %v", i, res.Equity[i])
		}
	}
	if len(res.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(res.Trades))
	}
}

func TestRun_CostMonotonicity(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 101, 99, 99, 102, 105},
		[]float64{1, -1, 1, -1, 1, -1},
	)

	var prev float64 = math.Inf(1)
	for _, spread := range []float64{0, 0.01, 0.1, 1.0} {
		res, err := Run(prices, signals, Config{Spread: spread, ShortsEnabled: true})
		if err != nil {
			t.Fatalf("Run(spread=%v) failed: %v", spread, err)
		}
		final := res.Equity[len(res.Equity)-1]
		if final > prev {
			t.Errorf("final equity rose from %v to %v when spread increased to %v", prev, final, spread)
		}
		prev = final
	}
}

func TestRun_NaNSignalIsFlat(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 101, 102, 103},
		[]float64{math.NaN(), math.NaN(), 1, 1},
	)

	res, err := Run(prices, signals, Config{Spread: 0, ShortsEnabled: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wantHeld := []int{0, 0, 0, 1}
	for i, h := range wantHeld {
		if res.Held[i] != h {
			t.Errorf("held[%d]: expected %d, got %d", i, h, res.Held[i])
		}
	}
}

func TestRun_InvalidInputs(t *testing.T) {
	goodPrices, goodSignals := makeSeries([]float64{100, 101}, []float64{1, 1})
	badPrices, _ := makeSeries([]float64{100, -5}, []float64{1, 1})
	zeroPrices, _ := makeSeries([]float64{100, 0}, []float64{1, 1})
	nanPrices, _ := makeSeries([]float64{100, math.NaN()}, []float64{1, 1})
	_, shortSignals := makeSeries([]float64{100}, []float64{1})
	_, infSignals := makeSeries([]float64{100, 101}, []float64{1, math.Inf(1)})

	cases := []struct {
		name    string
		prices  model.PriceSeries
		signals model.SignalSeries
	}{
		{"negative price", badPrices, goodSignals},
		{"zero price", zeroPrices, goodSignals},
		{"NaN price", nanPrices, goodSignals},
		{"length mismatch", goodPrices, shortSignals},
		{"infinite signal", goodPrices, infSignals},
		{"empty series", model.PriceSeries{}, model.SignalSeries{}},
	}
	for _, tc := range cases {
		_, err := Run(tc.prices, tc.signals, Config{Spread: 0.1, ShortsEnabled: true})
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestRun_MisalignedTimestamps(t *testing.T) {
	prices, _ := makeSeries([]float64{100, 101}, nil)
	signals := model.SignalSeries{
		{TS: prices[0].TS, Value: 1},
		{TS: prices[1].TS.Add(time.Second), Value: 1},
	}
	_, err := Run(prices, signals, Config{Spread: 0.1})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for shifted timestamps, got %v", err)
	}
}

func TestRun_NegativeSpread(t *testing.T) {
	prices, signals := makeSeries([]float64{100, 101}, []float64{1, 1})
	_, err := Run(prices, signals, Config{Spread: -0.1})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestRun_StagedMatchesFold(t *testing.T) {
	prices, signals := makeSeries(
		[]float64{100, 101, 99, 99, 102, 104, 101, 100, 103, 99},
		[]float64{0, 1, 1, -1, -1, 0, 1, -1, math.NaN(), 1},
	)
	for _, cfg := range []Config{
		{Spread: 0.1, ShortsEnabled: true},
		{Spread: 0.1, ShortsEnabled: false},
		{Spread: 0, ShortsEnabled: true},
	} {
		res, err := Run(prices, signals, cfg)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		foldEquity, foldHeld := runFoldSeeded(prices, signals, cfg)
		if !floatsEqual(res.Equity, foldEquity) {
			t.Errorf("cfg %+v: staged equity %v != fold equity %v", cfg, res.Equity, foldEquity)
		}
		for i := range res.Held {
			if res.Held[i] != foldHeld[i] {
				t.Errorf("cfg %+v: held[%d] staged %d != fold %d", cfg, i, res.Held[i], foldHeld[i])
			}
		}
	}
}

// runFoldSeeded is an independent single-pass realization of the
// pipeline, carrying (prev target, cumulative equity) through one
// forward iteration. The staged Run must reproduce it exactly.
func runFoldSeeded(prices model.PriceSeries, signals model.SignalSeries, cfg Config) ([]float64, []int) {
	equity := make([]float64, len(prices))
	held := make([]int, len(prices))
	resolve := func(v float64) int {
		switch {
		case math.IsNaN(v):
			return 0
		case v > 0:
			return 1
		case v < 0 && cfg.ShortsEnabled:
			return -1
		default:
			return 0
		}
	}
	prevTarget := resolve(signals[0].Value)
	for t := 1; t < len(prices); t++ {
		held[t] = prevTarget
		cost := 0.0
		if d := held[t] - held[t-1]; d != 0 {
			cost = cfg.Spread * math.Abs(float64(d))
		}
		equity[t] = equity[t-1] + float64(held[t])*(prices[t].Price-prices[t-1].Price) - cost
		prevTarget = resolve(signals[t].Value)
	}
	return equity, held
}
