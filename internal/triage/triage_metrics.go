package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem. A nil *Metrics
// is valid and records nothing, so library consumers can skip registration.
type Metrics struct {
	ActionsTotal     *prometheus.CounterVec
	TrustRejections  prometheus.Counter
	WorkItemsCreated prometheus.Counter
	SnoozeExpiries   prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_triage_actions_total",
			Help: "Triage actions by action and outcome.",
		}, []string{"action", "outcome"}),
		TrustRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_triage_trust_rejections_total",
			Help: "MarkTrusted calls rejected by the clearable invariant.",
		}),
		WorkItemsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_triage_work_items_created_total",
			Help: "Work items created.",
		}),
		SnoozeExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_triage_snooze_expiries_total",
			Help: "Snoozed items returned to needs_review on read.",
		}),
	}

	reg.MustRegister(
		m.ActionsTotal,
		m.TrustRejections,
		m.WorkItemsCreated,
		m.SnoozeExpiries,
	)

	return m
}

// IncAction records one triage action outcome.
func (m *Metrics) IncAction(action, outcome string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// IncTrustRejected records one guard rejection.
func (m *Metrics) IncTrustRejected() {
	if m == nil {
		return
	}
	m.TrustRejections.Inc()
}

// IncCreated records one work item creation.
func (m *Metrics) IncCreated() {
	if m == nil {
		return
	}
	m.WorkItemsCreated.Inc()
}

// IncSnoozeExpired records one lazy snooze expiry.
func (m *Metrics) IncSnoozeExpired() {
	if m == nil {
		return
	}
	m.SnoozeExpiries.Inc()
}
