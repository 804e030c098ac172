package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "recall"

// Metrics holds the prometheus collectors of the memory engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	StoreSize         prometheus.Gauge
	Inserts           prometheus.Counter
	Evictions         prometheus.Counter
	Searches          prometheus.Counter
	SearchHits        prometheus.Counter
	Candidates        *prometheus.CounterVec
	StoreFailures     prometheus.Counter
	RetrievalFailures prometheus.Counter
	WindowAppends     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "memory_entries",
			Help:      "Number of semantic memories currently stored",
		}),
		Inserts: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_inserts_total",
			Help:      "Total semantic memories inserted",
		}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_evictions_total",
			Help:      "Total semantic memories evicted by the capacity bound",
		}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_searches_total",
			Help:      "Total similarity searches",
		}),
		SearchHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_search_hits_total",
			Help:      "Total memories returned by similarity searches",
		}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "extractor_candidates_total",
			Help:      "Candidate facts seen by the extractor, by outcome",
		}, []string{"outcome"}),
		StoreFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_store_failures_total",
			Help:      "Candidate facts that failed to embed or insert",
		}),
		RetrievalFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_retrieval_failures_total",
			Help:      "Retrievals degraded to an empty result",
		}),
		WindowAppends: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "window_appends_total",
			Help:      "Turns appended to conversation windows",
		}),
	}
}

func (m *Metrics) setStoreSize(n int) {
	if m != nil {
		m.StoreSize.Set(float64(n))
	}
}

func (m *Metrics) incInserts() {
	if m != nil {
		m.Inserts.Inc()
	}
}

func (m *Metrics) incEvictions() {
	if m != nil {
		m.Evictions.Inc()
	}
}

func (m *Metrics) observeSearch(hits int) {
	if m != nil {
		m.Searches.Inc()
		m.SearchHits.Add(float64(hits))
	}
}

func (m *Metrics) incCandidates(outcome string) {
	if m != nil {
		m.Candidates.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) incStoreFailures() {
	if m != nil {
		m.StoreFailures.Inc()
	}
}

func (m *Metrics) incRetrievalFailures() {
	if m != nil {
		m.RetrievalFailures.Inc()
	}
}

func (m *Metrics) incWindowAppends() {
	if m != nil {
		m.WindowAppends.Inc()
	}
}
