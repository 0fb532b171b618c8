package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"backtest-systemv1/internal/model"
)

// DefaultStooqBaseURL is the public stooq.pl CSV endpoint. Stooq serves
// free daily market data and requires no authentication.
const DefaultStooqBaseURL = "https://stooq.pl/q/d/l/"

// StooqLoader downloads historical daily closing prices from stooq.pl
// and caches parsed series locally as CSV, serving from cache when a
// matching file exists.
type StooqLoader struct {
	BaseURL  string
	CacheDir string
	Client   *http.Client
}

// NewStooqLoader creates a loader caching under cacheDir.
func NewStooqLoader(cacheDir string) *StooqLoader {
	return &StooqLoader{
		BaseURL:  DefaultStooqBaseURL,
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadDaily returns daily closing prices for symbol (e.g. "aapl.us")
// between startDate and endDate, both in "YYYYMMDD" format.
func (l *StooqLoader) LoadDaily(symbol, startDate, endDate string) (model.PriceSeries, error) {
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("data cache dir: %w", err)
	}

	cachePath := filepath.Join(l.CacheDir, fmt.Sprintf("%s_%s_%s.csv", symbol, startDate, endDate))
	if series, err := readCache(cachePath); err == nil {
		log.Printf("[data] loaded %d bars for %s from cache", len(series), symbol)
		return series, nil
	}

	url := fmt.Sprintf("%s?s=%s&i=d&f=%s&t=%s", l.BaseURL, symbol, startDate, endDate)
	resp, err := l.Client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq fetch %s: unexpected status %s", symbol, resp.Status)
	}

	series, err := parseStooqCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stooq parse %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("stooq: no data for symbol=%s in range %s-%s", symbol, startDate, endDate)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].TS.Before(series[j].TS) })

	if err := writeCache(cachePath, series); err != nil {
		log.Printf("[data] cache write warning: %v", err)
	}
	log.Printf("[data] downloaded %d bars for %s", len(series), symbol)
	return series, nil
}

// parseStooqCSV extracts date and closing price from a stooq daily CSV.
// Stooq returns Polish column headers; only "Data" (date) and
// "Zamkniecie" (close) are retained.
func parseStooqCSV(r io.Reader) (model.PriceSeries, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch name {
		case "Data":
			dateCol = i
		case "Zamkniecie":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var series model.PriceSeries
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		ts, err := time.Parse("2006-01-02", rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec[dateCol], err)
		}
		price, err := strconv.ParseFloat(rec[closeCol], 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", rec[closeCol], err)
		}
		series = append(series, model.PricePoint{TS: ts.UTC(), Price: price})
	}
	return series, nil
}

func readCache(path string) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	if _, err := cr.Read(); err != nil { // header
		return nil, err
	}
	var series model.PriceSeries
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, err
		}
		series = append(series, model.PricePoint{TS: ts, Price: price})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("empty cache file %s", path)
	}
	return series, nil
}

func writeCache(path string, series model.PriceSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"t", "price"}); err != nil {
		return err
	}
	for _, p := range series {
		rec := []string{p.TS.Format(time.RFC3339), strconv.FormatFloat(p.Price, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
