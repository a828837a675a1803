// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Broadcast kinds.
const (
	BroadcastInitial = "initial"
	BroadcastResend  = "resend"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Submission metrics
	BroadcastsTotal    *prometheus.CounterVec
	StatusPollsTotal   *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec

	// Swap metrics
	SimulationsTotal       *prometheus.CounterVec
	SwapsTotal             *prometheus.CounterVec
	BalanceResolutionTotal *prometheus.CounterVec
	OpenHoldings           prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSwap prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_swap_engine"
	}

	return &Metrics{
		BroadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "broadcasts_total",
			Help:      "Total number of transaction broadcasts by kind and result",
		}, []string{"kind", "result"}),
		StatusPollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "status_polls_total",
			Help:      "Total number of signature status polls by result",
		}, []string{"result"}),
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "submissions_total",
			Help:      "Total number of submissions by outcome and winning channel",
		}, []string{"status", "channel"}),
		SubmissionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "duration_seconds",
			Help:      "Time from first broadcast to outcome in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"status"}),

		SimulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "simulations_total",
			Help:      "Total number of swap simulations by result",
		}, []string{"result"}),
		SwapsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "swaps_total",
			Help:      "Total number of swaps by side and result",
		}, []string{"side", "result"}),
		BalanceResolutionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "balance_resolutions_total",
			Help:      "Total number of balance delta resolutions by result",
		}, []string{"result"}),
		OpenHoldings: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "open_holdings",
			Help:      "Current number of open holdings",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulSwap: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_swap_timestamp",
			Help:      "Unix timestamp of last successful swap",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordBroadcast records one sendTransaction attempt.
func RecordBroadcast(kind string, err error) {
	DefaultMetrics.BroadcastsTotal.WithLabelValues(kind, result(err)).Inc()
}

// RecordStatusPoll records one signature status poll.
func RecordStatusPoll(err error) {
	DefaultMetrics.StatusPollsTotal.WithLabelValues(result(err)).Inc()
}

// RecordSubmission records a submission outcome.
func RecordSubmission(status, channel string, seconds float64) {
	if channel == "" {
		channel = "none"
	}
	DefaultMetrics.SubmissionsTotal.WithLabelValues(status, channel).Inc()
	DefaultMetrics.SubmissionDuration.WithLabelValues(status).Observe(seconds)
}

// RecordSimulation records a simulation result.
func RecordSimulation(ok bool) {
	label := "rejected"
	if ok {
		label = "ok"
	}
	DefaultMetrics.SimulationsTotal.WithLabelValues(label).Inc()
}

// RecordSwap records a finished swap attempt.
func RecordSwap(side, res string) {
	DefaultMetrics.SwapsTotal.WithLabelValues(side, res).Inc()
	if res == "ok" {
		DefaultMetrics.LastSuccessfulSwap.Set(float64(time.Now().Unix()))
	}
}

// RecordBalanceResolution records a balance delta lookup result.
func RecordBalanceResolution(res string) {
	DefaultMetrics.BalanceResolutionTotal.WithLabelValues(res).Inc()
}

// UpdateOpenHoldings sets the open holdings gauge.
func UpdateOpenHoldings(n int) {
	DefaultMetrics.OpenHoldings.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
