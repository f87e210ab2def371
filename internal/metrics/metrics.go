// Package metrics exposes Prometheus collectors for geo-directory traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geodirectory"

const (
	ResultSuccess = "success"
	ResultError   = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// SyncMetrics records remote calls and cache lookups made by the sync service.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

// NewSyncMetrics creates the collectors and registers them with reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of geo-directory requests by operation and result.",
		}, []string{"operation", "result"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of geo-directory requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Entry cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.remoteRequests, m.remoteDuration, m.cacheLookups)
	return m
}

// ObserveRemote records one remote call that started at start.
func (m *SyncMetrics) ObserveRemote(operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.remoteRequests.WithLabelValues(operation, result).Inc()
	m.remoteDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *SyncMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}

	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
