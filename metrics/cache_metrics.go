package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type CacheMetricsCollector struct {
	Hits      *prometheus.CounterVec
	Misses    *prometheus.CounterVec
	Requests  *prometheus.CounterVec
	Coalesced *prometheus.CounterVec
	Fetches   *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	BatchSize *prometheus.HistogramVec
	HitRatio  *prometheus.GaugeVec
}

var globalCollector *CacheMetricsCollector

func getCollector() *CacheMetricsCollector {
	if globalCollector == nil {
		globalCollector = &CacheMetricsCollector{
			Hits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nftcache_hits_total",
					Help: "The total number of cache hits",
				},
				[]string{"cache_type"},
			),
			Misses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nftcache_misses_total",
					Help: "The total number of cache misses",
				},
				[]string{"cache_type"},
			),
			Requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nftcache_requests_total",
					Help: "The total number of cache requests",
				},
				[]string{"cache_type"},
			),
			Coalesced: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nftcache_coalesced_total",
					Help: "Requests attached to an already pending fetch for the same key",
				},
				[]string{"cache_type"},
			),
			Fetches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nftcache_fetches_total",
					Help: "Remote fetches issued, by outcome",
				},
				[]string{"cache_type", "outcome"},
			),
			Latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nftcache_operation_duration_seconds",
					Help:    "Cache operation duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"cache_type", "operation"},
			),
			BatchSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nftcache_batch_size",
					Help:    "Unique keys dispatched per batching window",
					Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
				},
				[]string{"cache_type"},
			),
			HitRatio: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "nftcache_hit_ratio",
					Help: "Cache hit ratio (hits/total requests)",
				},
				[]string{"cache_type"},
			),
		}
	}
	return globalCollector
}

type CacheMetrics struct {
	cacheType string
	hits      int64
	misses    int64
	total     int64
	collector *CacheMetricsCollector
	mu        sync.RWMutex
}

func NewCacheMetrics(cacheType string) *CacheMetrics {
	return &CacheMetrics{
		cacheType: cacheType,
		collector: getCollector(),
	}
}

func (m *CacheMetrics) RecordHit() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	m.total++
	m.collector.Hits.WithLabelValues(m.cacheType).Inc()
	m.collector.Requests.WithLabelValues(m.cacheType).Inc()
	m.updateHitRatio()
}

func (m *CacheMetrics) RecordMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.misses++
	m.total++
	m.collector.Misses.WithLabelValues(m.cacheType).Inc()
	m.collector.Requests.WithLabelValues(m.cacheType).Inc()
	m.updateHitRatio()
}

func (m *CacheMetrics) RecordCoalesced() {
	m.collector.Coalesced.WithLabelValues(m.cacheType).Inc()
}

func (m *CacheMetrics) RecordFetch(outcome string) {
	m.collector.Fetches.WithLabelValues(m.cacheType, outcome).Inc()
}

func (m *CacheMetrics) RecordBatchSize(size int) {
	m.collector.BatchSize.WithLabelValues(m.cacheType).Observe(float64(size))
}

func (m *CacheMetrics) RecordLatency(operation string, duration float64) {
	m.collector.Latency.WithLabelValues(m.cacheType, operation).Observe(duration)
}

// updateHitRatio updates the Prometheus hit ratio gauge.
// Must be called while holding the mutex.
func (m *CacheMetrics) updateHitRatio() {
	if m.total > 0 {
		ratio := float64(m.hits) / float64(m.total)
		m.collector.HitRatio.WithLabelValues(m.cacheType).Set(ratio)
	}
}

func (m *CacheMetrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hitRatio float64
	if m.total > 0 {
		hitRatio = float64(m.hits) / float64(m.total)
	}

	return map[string]interface{}{
		"cache_type": m.cacheType,
		"hits":       m.hits,
		"misses":     m.misses,
		"total":      m.total,
		"hit_ratio":  hitRatio,
	}
}
