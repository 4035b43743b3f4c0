package enrich

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the enrichment pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ExtractionsTotal *prometheus.CounterVec
	TokensUsed       *prometheus.CounterVec
	AutoLinks        prometheus.Counter
}

// NewMetrics registers and returns enrichment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_enrich_extractions_total",
			Help: "Enrichment runs by outcome.",
		}, []string{"outcome"}),
		TokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_enrich_tokens_total",
			Help: "Provider tokens consumed, by direction.",
		}, []string{"direction"}),
		AutoLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_enrich_auto_links_total",
			Help: "Entity links created from high-confidence suggestions.",
		}),
	}

	reg.MustRegister(
		m.ExtractionsTotal,
		m.TokensUsed,
		m.AutoLinks,
	)

	return m
}

// IncExtraction records one enrichment run outcome.
func (m *Metrics) IncExtraction(outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
}

// AddTokens records provider token usage.
func (m *Metrics) AddTokens(input, output int) {
	if m == nil {
		return
	}
	m.TokensUsed.WithLabelValues("input").Add(float64(input))
	m.TokensUsed.WithLabelValues("output").Add(float64(output))
}

// IncAutoLink records one ai_match link creation.
func (m *Metrics) IncAutoLink() {
	if m == nil {
		return
	}
	m.AutoLinks.Inc()
}
