// Package model defines the value types shared across the backtester:
// price and signal series, trade events, and the two error kinds every
// failure wraps.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput marks misaligned, empty, or malformed input series.
var ErrInvalidInput = errors.New("invalid input")

// ErrConfiguration marks an invalid run parameter (e.g. negative spread).
var ErrConfiguration = errors.New("invalid configuration")

// PricePoint is one bar of the price series: a timestamp and the
// closing price for that bar.
type PricePoint struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
}

// SignalPoint is one bar of the signal series. Value's sign encodes the
// desired directional exposure; exactly zero means no preference.
// NaN is the explicit "no signal" marker for leading bars.
type SignalPoint struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// PriceSeries is a time-ordered, gap-free sequence of closing prices.
type PriceSeries []PricePoint

// SignalSeries is a time-ordered sequence of signal values.
type SignalSeries []SignalPoint

// TradeEvent records a position change at one bar: the exposure crossed
// (Delta, in units) and the spread cost charged for crossing it.
type TradeEvent struct {
	Index int       `json:"index"`
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
	Delta int       `json:"delta"` // held(t) - held(t-1), in {-2..+2}
	Cost  float64   `json:"cost"`
}

// Validate checks that prices form a usable backtest input: non-empty,
// strictly increasing timestamps, strictly positive finite values.
func (ps PriceSeries) Validate() error {
	if len(ps) == 0 {
		return fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}
	for i, p := range ps {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return fmt.Errorf("%w: non-finite price %v at bar %d", ErrInvalidInput, p.Price, i)
		}
		if p.Price <= 0 {
			return fmt.Errorf("%w: non-positive price %v at bar %d", ErrInvalidInput, p.Price, i)
		}
		if i > 0 && !ps[i-1].TS.Before(p.TS) {
			return fmt.Errorf("%w: price timestamps not strictly increasing at bar %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// Validate checks the signal series: non-empty, strictly increasing
// timestamps, finite values (NaN allowed as the no-signal marker).
func (ss SignalSeries) Validate() error {
	if len(ss) == 0 {
		return fmt.Errorf("%w: empty signal series", ErrInvalidInput)
	}
	for i, s := range ss {
		if math.IsInf(s.Value, 0) {
			return fmt.Errorf("%w: infinite signal at bar %d", ErrInvalidInput, i)
		}
		if i > 0 && !ss[i-1].TS.Before(s.TS) {
			return fmt.Errorf("%w: signal timestamps not strictly increasing at bar %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// ValidateAligned checks that the two series share the same index
// domain: equal length and pairwise-equal timestamps.
func ValidateAligned(prices PriceSeries, signals SignalSeries) error {
	if err := prices.Validate(); err != nil {
		return err
	}
	if err := signals.Validate(); err != nil {
		return err
	}
	if len(prices) != len(signals) {
		return fmt.Errorf("%w: length mismatch, %d prices vs %d signals",
			ErrInvalidInput, len(prices), len(signals))
	}
	for i := range prices {
		if !prices[i].TS.Equal(signals[i].TS) {
			return fmt.Errorf("%w: timestamp mismatch at bar %d (%s vs %s)",
				ErrInvalidInput, i, prices[i].TS.Format(time.RFC3339), signals[i].TS.Format(time.RFC3339))
		}
	}
	return nil
}
