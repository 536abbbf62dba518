package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "capacitor"

// Forward statuses recorded by RecordForward.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors of the indexer. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	blocksProcessed prometheus.Counter
	lastBlockHeight prometheus.Gauge
	outcomes        *prometheus.CounterVec

	decodeErrors   *prometheus.CounterVec
	unmatchedLogs  prometheus.Counter
	forwarded      *prometheus.CounterVec
	forwardLatency *prometheus.HistogramVec

	allowListSize prometheus.Gauge
	adminRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_processed_total",
			Help:      "Total number of streamer messages consumed",
		}),
		lastBlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_block_height",
			Help:      "Height of the last consumed block",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "outcomes_total",
			Help:      "Receipt execution outcomes by filter result",
		}, []string{"result"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_errors_total",
			Help:      "Log lines that failed to decode, by error kind",
		}, []string{"kind"}),
		unmatchedLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unmatched_logs_total",
			Help:      "Log lines from eligible outcomes with no known event tag",
		}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_forwarded_total",
			Help:      "Events sent to the marketplace API by kind and status",
		}, []string{"kind", "status"}),
		forwardLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "forward_duration_seconds",
			Help:      "Marketplace API request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		allowListSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "allowlist_size",
			Help:      "Number of allow-listed contract accounts",
		}),
		adminRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "admin_requests_total",
			Help:      "Admin endpoint requests by response code",
		}, []string{"code"}),
	}

	err := errors.Join(
		reg.Register(m.blocksProcessed),
		reg.Register(m.lastBlockHeight),
		reg.Register(m.outcomes),
		reg.Register(m.decodeErrors),
		reg.Register(m.unmatchedLogs),
		reg.Register(m.forwarded),
		reg.Register(m.forwardLatency),
		reg.Register(m.allowListSize),
		reg.Register(m.adminRequests),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveBlock records that the block at height was consumed.
func (m *Metrics) ObserveBlock(height uint64) {
	if m == nil {
		return
	}
	m.blocksProcessed.Inc()
	m.lastBlockHeight.Set(float64(height))
}

func (m *Metrics) ObserveOutcome(result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(result).Inc()
}

func (m *Metrics) IncDecodeError(kind string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncUnmatched() {
	if m == nil {
		return
	}
	m.unmatchedLogs.Inc()
}

// RecordForward records one sink call. A nil err counts as success.
func (m *Metrics) RecordForward(kind string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.forwarded.WithLabelValues(kind, status).Inc()
	m.forwardLatency.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) SetAllowListSize(n int) {
	if m == nil {
		return
	}
	m.allowListSize.Set(float64(n))
}

func (m *Metrics) IncAdminRequest(code string) {
	if m == nil {
		return
	}
	m.adminRequests.WithLabelValues(code).Inc()
}
