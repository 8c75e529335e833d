// Package metrics exposes prometheus collectors for the reference
// store: commit latency, split-transaction warnings, lockfile retries,
// and reflog entry counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the store registers. Construct one
// with New and register it with a prometheus.Registerer.
type Metrics struct {
	CommitDuration   *prometheus.HistogramVec
	SplitCommitTotal prometheus.Counter
	LockRetryTotal   *prometheus.CounterVec
	ReflogEntries    *prometheus.HistogramVec
}

// New builds a Metrics bundle with the refstore_ prefix.
func New() *Metrics {
	return &Metrics{
		CommitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "refstore",
			Name:      "commit_duration_seconds",
			Help:      "Time to commit a reference transaction, by backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		SplitCommitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refstore",
			Name:      "split_commit_warnings_total",
			Help:      "Number of commits where the auxiliary files sub-transaction failed after the primary succeeded.",
		}),
		LockRetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refstore",
			Name:      "lock_retries_total",
			Help:      "Number of lockfile acquisition retries, by backend.",
		}, []string{"backend"}),
		ReflogEntries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "refstore",
			Name:      "reflog_entries_written",
			Help:      "Number of reflog entries written per commit, by backend.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}, []string{"backend"}),
	}
}

// MustRegister registers every collector with reg, panicking on
// duplicate registration (mirrors prometheus.MustRegister's contract).
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.CommitDuration, m.SplitCommitTotal, m.LockRetryTotal, m.ReflogEntries)
}
