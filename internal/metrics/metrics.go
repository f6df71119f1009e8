// Package metrics holds the Prometheus collectors shared by the ledger
// submitter and the upload orchestrator. Collectors register with the default
// registry on first use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shdw_sdk"

type ledgerMetrics struct {
	submissions  *prometheus.CounterVec
	pollAttempts prometheus.Histogram
	confirmation prometheus.Histogram
}

type uploadMetrics struct {
	files    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	bytes    prometheus.Counter
	latency  prometheus.Histogram
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *ledgerMetrics

	uploadOnce     sync.Once
	uploadRegistry *uploadMetrics
)

// Ledger returns the lazily-initialised transaction submission metrics.
func Ledger() *ledgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "submissions_total",
				Help:      "Transactions submitted, segmented by terminal state.",
			}, []string{"state"}),
			pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "status_polls",
				Help:      "Status polls needed to reach a terminal state.",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			}),
			confirmation: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "confirmation_seconds",
				Help:      "Time from send to confirmation.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.submissions,
			ledgerRegistry.pollAttempts,
			ledgerRegistry.confirmation,
		)
	})
	return ledgerRegistry
}

// ObserveSubmission records a submission that ended in state after polls
// status reads.
func (m *ledgerMetrics) ObserveSubmission(state string, polls int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if state == "" {
		state = "unknown"
	}
	m.submissions.WithLabelValues(state).Inc()
	m.pollAttempts.Observe(float64(polls))
	if state == "confirmed" {
		m.confirmation.Observe(elapsed.Seconds())
	}
}

// Submissions exposes the per-state counter, mainly for tests.
func (m *ledgerMetrics) Submissions() *prometheus.CounterVec { return m.submissions }

// Upload returns the lazily-initialised upload metrics.
func Upload() *uploadMetrics {
	uploadOnce.Do(func() {
		uploadRegistry = &uploadMetrics{
			files: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "files_total",
				Help:      "Files processed, segmented by final outcome.",
			}, []string{"outcome"}),
			attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "attempts_total",
				Help:      "Upload attempts against the endpoint, segmented by outcome.",
			}, []string{"outcome"}),
			bytes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "bytes_total",
				Help:      "Payload bytes accepted by the endpoint.",
			}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "attempt_duration_seconds",
				Help:      "Latency of single upload attempts.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			}),
		}
		prometheus.MustRegister(
			uploadRegistry.files,
			uploadRegistry.attempts,
			uploadRegistry.bytes,
			uploadRegistry.latency,
		)
	})
	return uploadRegistry
}

// ObserveAttempt records a single request to the endpoint.
func (m *uploadMetrics) ObserveAttempt(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.latency.Observe(elapsed.Seconds())
}

// ObserveFile records the final outcome of one file. size is counted only for
// successful uploads.
func (m *uploadMetrics) ObserveFile(outcome string, size int64, ok bool) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
	if ok && size > 0 {
		m.bytes.Add(float64(size))
	}
}

// Files exposes the per-outcome counter, mainly for tests.
func (m *uploadMetrics) Files() *prometheus.CounterVec { return m.files }
