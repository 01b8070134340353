// Package metrics provides Prometheus instrumentation for the market
// engine, adapted from the teacher's internal/metrics package to the
// epoch-clearing domain.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EpochsClearedTotal counts cleared epochs, partitioned by outcome
	// (converged, did_not_converge, solver_fail, infeasible, invalid).
	EpochsClearedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convexfx_epochs_cleared_total",
		Help: "Total number of epochs processed by the clearing engine",
	}, []string{"outcome"})

	// ScpIterations is a histogram of SCP iterations consumed per
	// successfully cleared epoch.
	ScpIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "convexfx_scp_iterations",
		Help:    "Number of SCP iterations consumed per cleared epoch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 50},
	})

	// ClearingLatency tracks wall-clock time spent inside clearing.Clear.
	ClearingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "convexfx_clearing_latency_seconds",
		Help:    "Time spent clearing one epoch",
		Buckets: prometheus.DefBuckets,
	})

	// FillsTotal counts executed fills, partitioned by the pay/receive
	// asset pair.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convexfx_fills_total",
		Help: "Total number of order fills executed",
	}, []string{"pay_asset", "receive_asset"})

	// FillVolumeUsdTotal tracks cumulative fill volume, USD-equivalent,
	// partitioned by pay asset.
	FillVolumeUsdTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convexfx_fill_volume_usd_total",
		Help: "Cumulative USD-equivalent fill volume",
	}, []string{"pay_asset"})

	// PoolInventory is the pool's current per-asset inventory, updated
	// after every cleared epoch.
	PoolInventory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "convexfx_pool_inventory",
		Help: "Pool inventory per asset, USD notional",
	}, []string{"asset"})

	// WebSocketClients tracks connected WebSocket clients subscribed to
	// solution broadcasts.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convexfx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// SolverFallbacks counts trust-region shrinkage retries consumed by
	// the QP backend across all epochs.
	SolverFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convexfx_solver_fallbacks_total",
		Help: "Total trust-region shrinkage retries consumed by the QP backend",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convexfx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convexfx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
