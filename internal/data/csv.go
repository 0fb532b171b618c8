package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"backtest-systemv1/internal/model"
)

// csv timestamp layouts accepted in input files, tried in order.
var tsLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTS(s string) (time.Time, error) {
	for _, layout := range tsLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadPricesCSV reads a two-column (t, price) CSV file with a header
// row into a price series.
func ReadPricesCSV(path string) (model.PriceSeries, error) {
	rows, err := readTwoColumnCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read prices %s: %w", path, err)
	}
	series := make(model.PriceSeries, len(rows))
	for i, r := range rows {
		series[i] = model.PricePoint{TS: r.ts, Price: r.value}
	}
	return series, nil
}

// ReadSignalsCSV reads a two-column (t, signal) CSV file with a header
// row into a signal series.
func ReadSignalsCSV(path string) (model.SignalSeries, error) {
	rows, err := readTwoColumnCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read signals %s: %w", path, err)
	}
	series := make(model.SignalSeries, len(rows))
	for i, r := range rows {
		series[i] = model.SignalPoint{TS: r.ts, Value: r.value}
	}
	return series, nil
}

type tsValue struct {
	ts    time.Time
	value float64
}

func readTwoColumnCSV(path string) ([]tsValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	if _, err := cr.Read(); err != nil { // header
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []tsValue
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("expected 2 columns, got %d", len(rec))
		}
		ts, err := parseTS(rec[0])
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse value %q: %w", rec[1], err)
		}
		rows = append(rows, tsValue{ts: ts, value: v})
	}
	return rows, nil
}
