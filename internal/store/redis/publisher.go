// Package redis publishes completed backtest runs to Redis so external
// dashboards can consume them: run summaries go to a capped stream,
// equity points to a per-run PubSub channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"backtest-systemv1/internal/evaluation"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// runStream holds completed-run summaries; trimmed so a dashboard
	// restart never replays unbounded history.
	runStream       = "bt:runs"
	runStreamMaxLen = 1000
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes run summaries and equity points to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishRun appends one completed run summary to the run stream.
func (p *Publisher) PublishRun(ctx context.Context, runID int64, source string, sum evaluation.Summary) error {
	payload, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: runStream,
		MaxLen: runStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id":  strconv.FormatInt(runID, 10),
			"source":  source,
			"summary": string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", runStream, err)
	}
	return nil
}

// EquityPoint is one bar of the equity curve as published to PubSub.
type EquityPoint struct {
	RunID  int64     `json:"run_id"`
	Index  int       `json:"index"`
	TS     time.Time `json:"ts"`
	Equity float64   `json:"equity"`
}

// PublishEquity publishes the full equity curve of a run, one point per
// message, to "pub:bt:equity:{runID}". Subscribers missing the run
// entirely can fall back to the journal.
func (p *Publisher) PublishEquity(ctx context.Context, runID int64, ts []time.Time, equity []float64) error {
	channel := "pub:bt:equity:" + strconv.FormatInt(runID, 10)
	for i := range equity {
		pt := EquityPoint{RunID: runID, Index: i, TS: ts[i], Equity: equity[i]}
		payload, err := json.Marshal(pt)
		if err != nil {
			return fmt.Errorf("marshal equity point: %w", err)
		}
		if err := p.client.Publish(ctx, channel, string(payload)).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", channel, err)
		}
	}
	return nil
}

// Close closes the client connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
