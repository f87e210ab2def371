package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetrics_ObserveRemote(t *testing.T) {
	m := NewSyncMetrics(prometheus.NewRegistry())

	m.ObserveRemote("create_entry", time.Now(), nil)
	m.ObserveRemote("create_entry", time.Now(), errors.New("boom"))
	m.ObserveRemote("create_entry", time.Now(), nil)

	if got := testutil.ToFloat64(m.remoteRequests.WithLabelValues("create_entry", ResultSuccess)); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.remoteRequests.WithLabelValues("create_entry", ResultError)); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestSyncMetrics_ObserveCache(t *testing.T) {
	m := NewSyncMetrics(prometheus.NewRegistry())

	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestSyncMetrics_Nil(t *testing.T) {
	var m *SyncMetrics
	m.ObserveRemote("get_entry", time.Now(), nil)
	m.ObserveCache(true)
}
