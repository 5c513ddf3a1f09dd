package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for turn processing.
type ConversationMetrics struct {
	turnsTotal           *prometheus.CounterVec
	confirmationActions  *prometheus.CounterVec
	collaboratorFailures *prometheus.CounterVec
	turnLatency          *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carwash",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"state", "outcome"}),
		confirmationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carwash",
			Subsystem: "conversation",
			Name:      "confirmation_actions_total",
			Help:      "Resolved confirmation-step actions",
		}, []string{"action"}),
		collaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carwash",
			Subsystem: "conversation",
			Name:      "collaborator_failures_total",
			Help:      "External collaborator timeouts and failures",
		}, []string{"collaborator"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carwash",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.confirmationActions, m.collaboratorFailures, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(state, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state, outcome).Inc()
}

func (m *ConversationMetrics) ObserveConfirmationAction(action string) {
	if m == nil {
		return
	}
	m.confirmationActions.WithLabelValues(action).Inc()
}

func (m *ConversationMetrics) ObserveCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.collaboratorFailures.WithLabelValues(collaborator).Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(state string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(state).Observe(seconds)
}
