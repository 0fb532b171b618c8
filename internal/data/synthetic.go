// Package data supplies backtest inputs: synthetic price/signal
// generators for demos and tests, and a historical daily-close loader
// with a local CSV cache. Both are collaborators of the core, which
// never performs I/O or randomness itself.
package data

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"backtest-systemv1/internal/model"
)

// TimeGrid returns n bar timestamps starting at start, spaced by step.
func TimeGrid(start time.Time, step time.Duration, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}

// RandomPrices generates a synthetic price series with normally
// distributed multiplicative returns:
//
//	p_0 = basePrice, p_{t+1} = p_t * (1 + r_{t+1}), r ~ N(loc, scale)
//
// Returns are clipped below at -0.999 so prices stay strictly positive.
// Pass a seeded rng for reproducible series.
func RandomPrices(rng *rand.Rand, grid []time.Time, basePrice, returnLoc, returnScale float64) model.PriceSeries {
	out := make(model.PriceSeries, len(grid))
	price := basePrice
	for i, ts := range grid {
		r := rng.NormFloat64()*returnScale + returnLoc
		if r < -0.999 {
			r = -0.999
		}
		price *= 1 + r
		out[i] = model.PricePoint{TS: ts, Price: price}
	}
	return out
}

// RandomSignal generates a signal series with values in {-1, 0, +1}.
// pNeg and pPos are the per-bar probabilities of -1 and +1; the rest of
// the mass goes to 0.
func RandomSignal(rng *rand.Rand, grid []time.Time, pNeg, pPos float64) (model.SignalSeries, error) {
	if pNeg < 0 || pPos < 0 || pNeg+pPos > 1 {
		return nil, fmt.Errorf("%w: signal probabilities pNeg=%v pPos=%v", model.ErrConfiguration, pNeg, pPos)
	}
	out := make(model.SignalSeries, len(grid))
	for i, ts := range grid {
		u := rng.Float64()
		var v float64
		switch {
		case u < pNeg:
			v = -1
		case u < pNeg+pPos:
			v = 1
		default:
			v = 0
		}
		out[i] = model.SignalPoint{TS: ts, Value: v}
	}
	return out, nil
}

// RandomSpreads generates a synthetic quoted-spread series as a base
// value multiplied by a lognormal factor: spr_t = base * exp(x_t),
// x ~ N(0, scale). Useful for stress-testing cost sensitivity; the
// core itself takes a single flat spread.
func RandomSpreads(rng *rand.Rand, grid []time.Time, baseSpread, scale float64) []float64 {
	out := make([]float64, len(grid))
	for i := range grid {
		out[i] = baseSpread * math.Exp(rng.NormFloat64()*scale)
	}
	return out
}
