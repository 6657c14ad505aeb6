package colstore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors updated by stores and containers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Writes        *prometheus.CounterVec
	DedupHits     *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	BytesAppended *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors already
// registered by another container on the same registerer are reused.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakstore",
			Name:      "store_writes_total",
			Help:      "Total values written per store, including deduplicated ones.",
		}, []string{"store"}),
		DedupHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakstore",
			Name:      "store_dedup_hits_total",
			Help:      "Total writes answered with an existing id.",
		}, []string{"store"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakstore",
			Name:      "cache_requests_total",
			Help:      "Cache lookups per store, cache and result.",
		}, []string{"store", "cache", "result"}),
		BytesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peakstore",
			Name:      "blob_bytes_appended_total",
			Help:      "Total bytes appended to blob arrays, including block padding.",
		}, []string{"section"}),
	}
	if reg == nil {
		return m
	}
	m.Writes = register(reg, m.Writes)
	m.DedupHits = register(reg, m.DedupHits)
	m.CacheRequests = register(reg, m.CacheRequests)
	m.BytesAppended = register(reg, m.BytesAppended)
	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) write(store string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(store).Inc()
}

func (m *Metrics) dedup(store string) {
	if m == nil {
		return
	}
	m.DedupHits.WithLabelValues(store).Inc()
}

func (m *Metrics) cache(store, cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(store, cache, result).Inc()
}

func (m *Metrics) appended(section string, n int) {
	if m == nil {
		return
	}
	m.BytesAppended.WithLabelValues(section).Add(float64(n))
}
