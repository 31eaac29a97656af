// Package metrics provides Prometheus collectors for grillbook.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransitionsTotal counts dialog transitions by source and target state.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grillbook_dialog_transitions_total",
		Help: "Total number of dialog transitions, by from and to state.",
	}, []string{"from_state", "to_state"})

	// BudgetReductionsTotal counts budget reductions by strategy.
	BudgetReductionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grillbook_budget_reductions_total",
		Help: "Total number of reply reductions applied, by strategy.",
	}, []string{"strategy"})

	// CallLogsTotal counts recorded conversation logs by destination and status.
	CallLogsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grillbook_call_logs_total",
		Help: "Total number of conversation logs recorded, by sink (sheets/file) and status.",
	}, []string{"sink", "status"})

	// BookingOpsTotal counts booking operations by kind and outcome.
	BookingOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grillbook_booking_operations_total",
		Help: "Total number of booking operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	// FunctionCallDuration tracks voice-platform function call latency.
	FunctionCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grillbook_function_call_duration_seconds",
		Help:    "Duration of voice-platform function calls, by function.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"function"})

	// ActiveSessions tracks conversations whose session is still live.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grillbook_active_sessions",
		Help: "Current number of live conversation sessions.",
	})
)

// ObserveBudgetReduction is a budget.WithReductionHook callback.
func ObserveBudgetReduction(strategy string) {
	BudgetReductionsTotal.WithLabelValues(strategy).Inc()
}

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
