package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for the booking conversation.
type DialogueMetrics struct {
	turnsTotal    *prometheus.CounterVec
	oracleErrors  *prometheus.CounterVec
	bookingsTotal *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total user turns handled, by stage and resulting mode",
		}, []string{"stage", "mode"}),
		oracleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "dialogue",
			Name:      "oracle_errors_total",
			Help:      "Total failed oracle calls",
		}, []string{"call"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "booking",
			Name:      "commits_total",
			Help:      "Total booking commits by outcome",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appointments",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full dialogue turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.oracleErrors, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(stage, mode string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, mode).Inc()
	m.turnLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *DialogueMetrics) ObserveOracleError(call string) {
	if m == nil {
		return
	}
	m.oracleErrors.WithLabelValues(call).Inc()
}

// ObserveBooking satisfies appointments.BookingObserver.
func (m *DialogueMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}
