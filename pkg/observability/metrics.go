// Package observability exposes engine lifecycle events as Prometheus
// metrics via the hook mechanism, so the core stays free of metrics code.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/parleyhq/parley/pkg/domain"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	turns            prometheus.Counter
	flowsStarted     *prometheus.CounterVec
	flowsFinished    *prometheus.CounterVec
	actionErrors     *prometheus.CounterVec
	confirmRetries   *prometheus.CounterVec
	confirmExhausted *prometheus.CounterVec
	handoffs         prometheus.Counter
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turns: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_turns_total",
			Help: "Turns processed.",
		}),
		flowsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_flows_started_total",
			Help: "Flow instances pushed onto a stack.",
		}, []string{"flow"}),
		flowsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_flows_finished_total",
			Help: "Flow instances popped, by terminal state.",
		}, []string{"flow", "result"}),
		actionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_action_errors_total",
			Help: "External action failures.",
		}, []string{"action"}),
		confirmRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_confirmation_retries_total",
			Help: "Unrecognized confirmation answers.",
		}, []string{"flow"}),
		confirmExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_confirmations_exhausted_total",
			Help: "Confirmations abandoned after the retry budget.",
		}, []string{"flow"}),
		handoffs: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_handoffs_total",
			Help: "Conversations escalated to a human.",
		}),
	}
}

// Hooks returns lifecycle hooks feeding these collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(string) { m.turns.Inc() },
		OnFlowStarted: func(flow string) {
			m.flowsStarted.WithLabelValues(flow).Inc()
		},
		OnFlowFinished: func(flow string, result domain.FlowState) {
			m.flowsFinished.WithLabelValues(flow, string(result)).Inc()
		},
		OnActionError: func(action string) {
			m.actionErrors.WithLabelValues(action).Inc()
		},
		OnConfirmationRetry: func(flow, _ string) {
			m.confirmRetries.WithLabelValues(flow).Inc()
		},
		OnConfirmationExhausted: func(flow string) {
			m.confirmExhausted.WithLabelValues(flow).Inc()
		},
		OnHandoff: func(string) { m.handoffs.Inc() },
	}
}
