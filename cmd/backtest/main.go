// cmd/backtest runs one signal backtest from the command line: input
// comes from the synthetic generators, a stooq.pl download, or local
// CSV files; output is a summary box and optionally a journal entry.
//
// Usage:
//
//	go run ./cmd/backtest --source=synthetic --bars=1000 --spread=0.0002
//	go run ./cmd/backtest --source=stooq --symbol=aapl.us --from=20210101 --to=20250101
//	go run ./cmd/backtest --prices=prices.csv --signals=signals.csv --shorts=false
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backtest-systemv1/config"
	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/data"
	"backtest-systemv1/internal/evaluation"
	"backtest-systemv1/internal/model"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	source := flag.String("source", "synthetic", "Input source: synthetic, stooq, csv")
	bars := flag.Int("bars", 1000, "Number of synthetic bars")
	seed := flag.Int64("seed", 42, "RNG seed for synthetic data")
	pNeg := flag.Float64("pneg", 0.1, "Per-bar probability of a -1 signal")
	pPos := flag.Float64("ppos", 0.1, "Per-bar probability of a +1 signal")
	symbol := flag.String("symbol", "aapl.us", "Stooq symbol")
	fromDate := flag.String("from", "20210101", "Stooq start date (YYYYMMDD)")
	toDate := flag.String("to", "20250101", "Stooq end date (YYYYMMDD)")
	pricesCSV := flag.String("prices", "", "Path to prices CSV (t,price) for --source=csv")
	signalsCSV := flag.String("signals", "", "Path to signals CSV (t,signal); optional for stooq/csv")
	spread := flag.Float64("spread", 0.0002, "Flat cost per unit of position change")
	shorts := flag.Bool("shorts", true, "Allow short positions")
	dbPath := flag.String("db", "", "Journal run to this SQLite database (empty = no journal)")
	check := flag.Bool("check", false, "Verify the bar-vs-trade PnL invariant after the run")
	flag.Parse()

	cfg := config.Load()

	prices, signals, err := loadInputs(cfg, *source, *bars, *seed, *pNeg, *pPos,
		*symbol, *fromDate, *toDate, *pricesCSV, *signalsCSV)
	if err != nil {
		log.Fatalf("[backtest] input: %v", err)
	}

	started := time.Now()
	runCfg := backtest.Config{Spread: *spread, ShortsEnabled: *shorts}
	res, err := backtest.Run(prices, signals, runCfg)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}
	elapsed := time.Since(started)

	if *check {
		if err := evaluation.VerifyPnLInvariant(res, prices); err != nil {
			log.Fatalf("[backtest] %v", err)
		}
		log.Printf("[backtest] pnl invariant holds")
	}

	sum := evaluation.Evaluate(res, prices, cfg.AnnualizationFactor)

	if *dbPath != "" {
		journal, err := sqlitestore.NewJournal(*dbPath)
		if err != nil {
			log.Fatalf("[backtest] journal open failed: %v", err)
		}
		defer journal.Close()
		runID, err := journal.RecordRun(*source, started, runCfg, res, sum)
		if err != nil {
			log.Fatalf("[backtest] journal write failed: %v", err)
		}
		log.Printf("[backtest] journaled as run %d", runID)
	}

	printSummary(*source, len(prices), elapsed, sum)
}

func loadInputs(cfg *config.Config, source string, bars int, seed int64, pNeg, pPos float64,
	symbol, fromDate, toDate, pricesCSV, signalsCSV string) (model.PriceSeries, model.SignalSeries, error) {

	var prices model.PriceSeries
	var signals model.SignalSeries
	var err error

	switch source {
	case "synthetic":
		rng := rand.New(rand.NewSource(seed))
		grid := data.TimeGrid(time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC), time.Minute, bars)
		prices = data.RandomPrices(rng, grid, 1.0, 0, 0.001)
		signals, err = data.RandomSignal(rng, grid, pNeg, pPos)
		if err != nil {
			return nil, nil, err
		}

	case "stooq":
		loader := data.NewStooqLoader(cfg.DataCacheDir)
		prices, err = loader.LoadDaily(symbol, fromDate, toDate)
		if err != nil {
			return nil, nil, err
		}

	case "csv":
		if pricesCSV == "" {
			return nil, nil, fmt.Errorf("--source=csv requires --prices")
		}
		prices, err = data.ReadPricesCSV(pricesCSV)
		if err != nil {
			return nil, nil, err
		}

	default:
		return nil, nil, fmt.Errorf("unknown source %q", source)
	}

	// Signals for stooq/csv: external file if given, otherwise a seeded
	// random signal on the price grid (demo mode, like the notebooks
	// this tool replaces).
	if signals == nil {
		if signalsCSV != "" {
			raw, err := data.ReadSignalsCSV(signalsCSV)
			if err != nil {
				return nil, nil, err
			}
			signals, err = model.AlignSignals(prices, raw)
			if err != nil {
				return nil, nil, err
			}
		} else {
			rng := rand.New(rand.NewSource(seed))
			grid := make([]time.Time, len(prices))
			for i, p := range prices {
				grid[i] = p.TS
			}
			signals, err = data.RandomSignal(rng, grid, pNeg, pPos)
			if err != nil {
				return nil, nil, err
			}
			log.Printf("[backtest] no signal file given, using seeded random signal")
		}
	}

	return prices, signals, nil
}

func printSummary(source string, bars int, elapsed time.Duration, sum evaluation.Summary) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Source:            %-16s ║\n", source)
	fmt.Printf("║  Bars:              %-16d ║\n", bars)
	fmt.Printf("║  Trades:            %-16d ║\n", sum.Trades)
	fmt.Printf("║  Closed pairs:      %-16d ║\n", sum.TradePairs)
	fmt.Printf("║  Winrate:           %-16.2f ║\n", sum.Winrate)
	fmt.Printf("║  Final equity:      %-16.6f ║\n", sum.FinalEquity)
	fmt.Printf("║  Sharpe:            %-16.4f ║\n", sum.Sharpe)
	fmt.Printf("║  Max drawdown:      %-16.6f ║\n", sum.MaxDrawdown)
	fmt.Printf("║  Max DD duration:   %-11d bars ║\n", sum.MaxDrawdownDur)
	fmt.Printf("║  Elapsed:           %-16v ║\n", elapsed.Round(time.Microsecond))
	fmt.Println("╚══════════════════════════════════════╝")
}
