package rulebased

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the tokenizer does. The collectors are created but not registered:
// callers register Collectors() with the registry of their choice.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	chunksTotal       prometheus.Counter
	cacheHitsTotal    prometheus.Counter
	cacheMissesTotal  prometheus.Counter
	specialCasesTotal prometheus.Counter
	tokensTotal       prometheus.Counter
}

// NewMetrics creates the tokenizer metrics, with names prefixed by namespace (e.g. "ruletok").
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		chunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of whitespace-delimited chunks tokenized",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of chunks served from the chunk cache",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of chunks that went through the affix-stripping loop",
		}),
		specialCasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "special_case_hits_total",
			Help:      "Total number of special-case matches, at any stage of affix stripping",
		}),
		tokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total number of tokens emitted",
		}),
	}
}

// Collectors returns the collectors to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.chunksTotal,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.specialCasesTotal,
		m.tokensTotal,
	}
}

func (m *Metrics) chunk(cacheHit bool) {
	if m == nil {
		return
	}
	m.chunksTotal.Inc()
	if cacheHit {
		m.cacheHitsTotal.Inc()
	} else {
		m.cacheMissesTotal.Inc()
	}
}

func (m *Metrics) specialCaseHit() {
	if m == nil {
		return
	}
	m.specialCasesTotal.Inc()
}

func (m *Metrics) tokens(n int) {
	if m == nil {
		return
	}
	m.tokensTotal.Add(float64(n))
}
