// Package observability owns the Prometheus collectors shared by the
// orchestrator service and the dev ledger node.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"component", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mintflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component", "method", "path", "status"},
	)
	ledgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintflow",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Transactions executed by the ledger node.",
		},
		[]string{"kind", "method", "status"},
	)
	stageAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintflow",
			Subsystem: "workflow",
			Name:      "stage_attempts_total",
			Help:      "Stage executions by outcome.",
		},
		[]string{"stage", "result"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mintflow",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Stage duration in seconds including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mintflow",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Completed workflow runs.",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, ledgerTransactions, stageAttempts, stageDuration, runs)
	})
}

func RecordHTTPRequest(component, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(component, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(component, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordTransaction(kind, method, status string) {
	RegisterMetrics()
	ledgerTransactions.WithLabelValues(kind, method, status).Inc()
}

func RecordStage(stage, result string, duration time.Duration) {
	RegisterMetrics()
	stageAttempts.WithLabelValues(stage, result).Inc()
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordRun(result string) {
	RegisterMetrics()
	runs.WithLabelValues(result).Inc()
}

// RequestMetrics is chi middleware recording every request under its route
// pattern, so path parameters do not explode label cardinality.
func RequestMetrics(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			RecordHTTPRequest(component, r.Method, path, status, time.Since(start))
		})
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
