// Package api provides the HTTP handlers of the backtest service:
// request parsing, input assembly, core invocation, and fan-out of
// completed runs to the journal, Redis, and WebSocket clients.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"time"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/data"
	"backtest-systemv1/internal/evaluation"
	"backtest-systemv1/internal/gateway"
	"backtest-systemv1/internal/metrics"
	"backtest-systemv1/internal/model"
	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
)

// Server holds the dependencies of the HTTP handlers. Publisher may be
// nil (Redis publishing disabled); everything else is required.
type Server struct {
	Journal   *sqlitestore.Journal
	Publisher *redisstore.Publisher
	Hub       *gateway.Hub
	Metrics   *metrics.Metrics
	Loader    *data.StooqLoader

	// AnnualizationFactor is the bars-per-year used for Sharpe.
	AnnualizationFactor float64
}

// BacktestRequest is the JSON body of POST /api/backtest.
type BacktestRequest struct {
	Source        string  `json:"source"` // "inline", "synthetic", "stooq"
	Spread        float64 `json:"spread"`
	ShortsEnabled bool    `json:"shorts_enabled"`

	// inline input
	Prices  model.PriceSeries  `json:"prices,omitempty"`
	Signals model.SignalSeries `json:"signals,omitempty"`

	// synthetic input
	Bars int     `json:"bars,omitempty"`
	Seed int64   `json:"seed,omitempty"`
	PNeg float64 `json:"p_neg,omitempty"`
	PPos float64 `json:"p_pos,omitempty"`

	// stooq input (signals are synthetic on the price grid)
	Symbol string `json:"symbol,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// BacktestResponse is the JSON result of a completed run.
type BacktestResponse struct {
	RunID   int64              `json:"run_id"`
	Source  string             `json:"source"`
	Summary evaluation.Summary `json:"summary"`
	Equity  []float64          `json:"equity"`
	Held    []int              `json:"held"`
	Trades  []model.TradeEvent `json:"trades"`
}

// HandleBacktest runs one backtest: POST /api/backtest.
func (s *Server) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		s.Metrics.RunsFailedTotal.WithLabelValues("bad_request").Inc()
		return
	}

	prices, signals, err := s.assembleInputs(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		s.Metrics.RunsFailedTotal.WithLabelValues("input_assembly").Inc()
		return
	}

	started := time.Now()
	cfg := backtest.Config{Spread: req.Spread, ShortsEnabled: req.ShortsEnabled}
	res, err := backtest.Run(prices, signals, cfg)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
			s.Metrics.RunsFailedTotal.WithLabelValues("invalid_input").Inc()
		case errors.Is(err, model.ErrConfiguration):
			writeError(w, http.StatusBadRequest, err.Error())
			s.Metrics.RunsFailedTotal.WithLabelValues("configuration").Inc()
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
			s.Metrics.RunsFailedTotal.WithLabelValues("internal").Inc()
		}
		return
	}
	s.Metrics.RunDuration.Observe(time.Since(started).Seconds())
	s.Metrics.BarsProcessed.Add(float64(len(prices)))
	s.Metrics.TradesTotal.Add(float64(len(res.Trades)))
	s.Metrics.RunsTotal.WithLabelValues(req.Source).Inc()

	sum := evaluation.Evaluate(res, prices, s.AnnualizationFactor)

	runID, err := s.Journal.RecordRun(req.Source, started, cfg, res, sum)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal: "+err.Error())
		s.Metrics.RunsFailedTotal.WithLabelValues("journal").Inc()
		return
	}

	resp := BacktestResponse{
		RunID:   runID,
		Source:  req.Source,
		Summary: sum,
		Equity:  res.Equity,
		Held:    res.Held,
		Trades:  res.Trades,
	}

	// Fan out after the run is durable. Redis and WS failures don't
	// fail the request: the journal row is the source of truth.
	if s.Publisher != nil {
		if err := s.Publisher.PublishRun(r.Context(), runID, req.Source, sum); err != nil {
			log.Printf("[api] redis publish run %d: %v", runID, err)
		}
		ts := make([]time.Time, len(prices))
		for i, p := range prices {
			ts[i] = p.TS
		}
		if err := s.Publisher.PublishEquity(r.Context(), runID, ts, res.Equity); err != nil {
			log.Printf("[api] redis publish equity %d: %v", runID, err)
		}
	}
	if s.Hub != nil {
		s.Hub.Broadcast("run_complete", resp)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRuns lists recent journaled runs: GET /api/runs.
func (s *Server) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.Journal.GetRuns(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []sqlitestore.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) assembleInputs(req *BacktestRequest) (model.PriceSeries, model.SignalSeries, error) {
	switch req.Source {
	case "inline":
		return req.Prices, req.Signals, nil

	case "synthetic":
		bars := req.Bars
		if bars <= 0 {
			bars = 1000
		}
		pNeg, pPos := req.PNeg, req.PPos
		if pNeg == 0 && pPos == 0 {
			pNeg, pPos = 0.1, 0.1
		}
		rng := rand.New(rand.NewSource(req.Seed))
		grid := data.TimeGrid(time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC), time.Minute, bars)
		prices := data.RandomPrices(rng, grid, 1.0, 0, 0.001)
		signals, err := data.RandomSignal(rng, grid, pNeg, pPos)
		if err != nil {
			return nil, nil, err
		}
		return prices, signals, nil

	case "stooq":
		prices, err := s.Loader.LoadDaily(req.Symbol, req.From, req.To)
		if err != nil {
			return nil, nil, err
		}
		rng := rand.New(rand.NewSource(req.Seed))
		grid := make([]time.Time, len(prices))
		for i, p := range prices {
			grid[i] = p.TS
		}
		signals, err := data.RandomSignal(rng, grid, 0.1, 0.1)
		if err != nil {
			return nil, nil, err
		}
		return prices, signals, nil

	default:
		return nil, nil, errors.New("unknown source " + req.Source + " (want inline, synthetic, or stooq)")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
