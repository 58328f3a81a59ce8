package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collector struct {
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	CacheHitRatio *prometheus.GaugeVec

	QuotaAdmitted prometheus.Counter
	QuotaRejected *prometheus.CounterVec

	GenerationLatency *prometheus.HistogramVec
}

var (
	globalCollector *collector
	collectorOnce   sync.Once
)

func getCollector() *collector {
	collectorOnce.Do(func() {
		globalCollector = &collector{
			CacheHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "atmolite_cache_hits_total",
					Help: "The total number of visual cache hits",
				},
				[]string{"tier"},
			),
			CacheMisses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "atmolite_cache_misses_total",
					Help: "The total number of visual cache misses",
				},
				[]string{"tier"},
			),
			CacheRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "atmolite_cache_requests_total",
					Help: "The total number of visual cache lookups",
				},
				[]string{"tier"},
			),
			CacheHitRatio: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "atmolite_cache_hit_ratio",
					Help: "Visual cache hit ratio (hits/total lookups)",
				},
				[]string{"tier"},
			),
			QuotaAdmitted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "atmolite_quota_admitted_total",
					Help: "The total number of calls admitted by the quota gate",
				},
			),
			QuotaRejected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "atmolite_quota_rejected_total",
					Help: "The total number of calls rejected by the quota gate",
				},
				[]string{"reason"},
			),
			GenerationLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "atmolite_generation_duration_seconds",
					Help:    "Duration of quota-gated provider calls in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
		}
	})
	return globalCollector
}

// CacheMetrics tracks hit/miss statistics for one cache tier.
type CacheMetrics struct {
	tier      string
	hits      int64
	misses    int64
	total     int64
	collector *collector
	mu        sync.RWMutex
}

func NewCacheMetrics(tier string) *CacheMetrics {
	return &CacheMetrics{
		tier:      tier,
		collector: getCollector(),
	}
}

func (m *CacheMetrics) RecordHit() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	m.total++
	m.collector.CacheHits.WithLabelValues(m.tier).Inc()
	m.collector.CacheRequests.WithLabelValues(m.tier).Inc()
	m.updateHitRatio()
}

func (m *CacheMetrics) RecordMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.misses++
	m.total++
	m.collector.CacheMisses.WithLabelValues(m.tier).Inc()
	m.collector.CacheRequests.WithLabelValues(m.tier).Inc()
	m.updateHitRatio()
}

// updateHitRatio updates the Prometheus hit ratio gauge.
// Must be called while holding the mutex.
func (m *CacheMetrics) updateHitRatio() {
	if m.total > 0 {
		ratio := float64(m.hits) / float64(m.total)
		m.collector.CacheHitRatio.WithLabelValues(m.tier).Set(ratio)
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
		"tier":      m.tier,
		"hits":      m.hits,
		"misses":    m.misses,
		"total":     m.total,
		"hit_ratio": hitRatio,
	}
}

// QuotaMetrics tracks quota gate admission decisions.
type QuotaMetrics struct {
	collector *collector
}

func NewQuotaMetrics() *QuotaMetrics {
	return &QuotaMetrics{collector: getCollector()}
}

func (m *QuotaMetrics) RecordAdmitted() {
	m.collector.QuotaAdmitted.Inc()
}

func (m *QuotaMetrics) RecordRejected(reason string) {
	m.collector.QuotaRejected.WithLabelValues(reason).Inc()
}

// GenerationMetrics tracks provider call latency per pipeline stage.
type GenerationMetrics struct {
	collector *collector
}

func NewGenerationMetrics() *GenerationMetrics {
	return &GenerationMetrics{collector: getCollector()}
}

func (m *GenerationMetrics) ObserveDuration(stage string, seconds float64) {
	m.collector.GenerationLatency.WithLabelValues(stage).Observe(seconds)
}
