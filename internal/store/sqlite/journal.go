// Package sqlite persists completed backtest runs to SQLite for
// analysis and audit: one row per run plus every trade execution.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"backtest-systemv1/internal/backtest"
	"backtest-systemv1/internal/evaluation"
	"backtest-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal records backtest runs and their trades.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		source        TEXT NOT NULL,
		bars          INTEGER NOT NULL,
		spread        REAL NOT NULL,
		shorts        INTEGER NOT NULL,
		final_equity  REAL NOT NULL,
		summary       TEXT NOT NULL,
		started_at    DATETIME NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS trades (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     INTEGER NOT NULL REFERENCES runs(id),
		bar_index  INTEGER NOT NULL,
		ts         DATETIME NOT NULL,
		price      REAL NOT NULL,
		delta      INTEGER NOT NULL,
		cost       REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[journal] opened run journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordRun persists one completed run with its trades in a single
// transaction and returns the assigned run id.
func (j *Journal) RecordRun(source string, startedAt time.Time, cfg backtest.Config, res *backtest.Result, sum evaluation.Summary) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return 0, fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := j.db.Begin()
	if err != nil {
		return 0, err
	}

	shorts := 0
	if cfg.ShortsEnabled {
		shorts = 1
	}
	r, err := tx.Exec(
		`INSERT INTO runs (source, bars, spread, shorts, final_equity, summary, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		source, len(res.Equity), cfg.Spread, shorts,
		res.Equity[len(res.Equity)-1], string(summaryJSON),
		startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	runID, err := r.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO trades (run_id, bar_index, ts, price, delta, cost) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, t := range res.Trades {
		if _, err := stmt.Exec(runID, t.Index, t.TS.UTC().Format(time.RFC3339), t.Price, t.Delta, t.Cost); err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// RunRecord is one row from the runs table.
type RunRecord struct {
	ID          int64              `json:"id"`
	Source      string             `json:"source"`
	Bars        int                `json:"bars"`
	Spread      float64            `json:"spread"`
	Shorts      bool               `json:"shorts"`
	FinalEquity float64            `json:"final_equity"`
	Summary     evaluation.Summary `json:"summary"`
	StartedAt   string             `json:"started_at"`
}

// GetRuns returns the last N runs, newest first.
func (j *Journal) GetRuns(limit int) ([]RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, source, bars, spread, shorts, final_equity, summary, started_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var shorts int
		var summaryJSON string
		if err := rows.Scan(&r.ID, &r.Source, &r.Bars, &r.Spread, &shorts,
			&r.FinalEquity, &summaryJSON, &r.StartedAt); err != nil {
			return nil, err
		}
		r.Shorts = shorts != 0
		if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetTrades returns all trades of one run in execution order.
func (j *Journal) GetTrades(runID int64) ([]model.TradeEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT bar_index, ts, price, delta, cost FROM trades WHERE run_id = ? ORDER BY bar_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.TradeEvent
	for rows.Next() {
		var t model.TradeEvent
		var ts string
		if err := rows.Scan(&t.Index, &ts, &t.Price, &t.Delta, &t.Cost); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse trade ts %q: %w", ts, err)
		}
		t.TS = parsed
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
