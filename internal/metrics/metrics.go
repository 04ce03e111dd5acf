package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "botaqiy"

// Metrics holds Prometheus metrics for the API server.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	DBConnPoolStats  *prometheus.GaugeVec
	LLMRequests      *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
}

// NewMetrics creates server metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RequestsInFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"route"},
		),
		DBConnPoolStats: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
		LLMRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "requests_total",
				Help:      "Text generation requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Generation cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records count, duration and in-flight requests for route.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.WithLabelValues(route).Inc()
		defer m.RequestsInFlight.WithLabelValues(route).Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

// RecordDBPoolStats copies pgx pool statistics into gauges.
func (m *Metrics) RecordDBPoolStats(stat *pgxpool.Stat) {
	m.DBConnPoolStats.WithLabelValues("total").Set(float64(stat.TotalConns()))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	m.DBConnPoolStats.WithLabelValues("max").Set(float64(stat.MaxConns()))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stat.EmptyAcquireCount()))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stat.AcquireDuration().Milliseconds()))
}

// SyncMetrics holds client-side sync queue metrics.
type SyncMetrics struct {
	Replayed *prometheus.CounterVec
	Pending  prometheus.Gauge
}

// NewSyncMetrics creates sync queue metrics registered with reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	f := promauto.With(reg)

	return &SyncMetrics{
		Replayed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "replayed_total",
				Help:      "Queued mutations replayed against the backend by outcome",
			},
			[]string{"outcome"},
		),
		Pending: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "pending_items",
				Help:      "Queued mutations not yet synced, as of the last drain",
			},
		),
	}
}
