// Package metrics exposes Prometheus metrics for the backtest service.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backtest service.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: source
	RunsFailedTotal *prometheus.CounterVec // labels: reason
	RunDuration     prometheus.Histogram
	BarsProcessed   prometheus.Counter
	TradesTotal     prometheus.Counter
	WSClients       prometheus.Gauge
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btserver_runs_total",
			Help: "Completed backtest runs by input source",
		}, []string{"source"}),
		RunsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btserver_runs_failed_total",
			Help: "Failed backtest runs by failure reason",
		}, []string{"reason"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "btserver_run_duration_seconds",
			Help:    "Wall-clock duration of one backtest run",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		BarsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btserver_bars_processed_total",
			Help: "Total bars processed across all runs",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btserver_trades_total",
			Help: "Total trade executions produced across all runs",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btserver_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunsFailedTotal,
		m.RunDuration,
		m.BarsProcessed,
		m.TradesTotal,
		m.WSClients,
	)
	return m
}

// Serve starts the /metrics HTTP endpoint. Blocks; run in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("[metrics] serving on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[metrics] server error: %v", err)
	}
}
