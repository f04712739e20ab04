package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for conversation turns.
type DialogueMetrics struct {
	turnsTotal       *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	bookingsTotal    prometheus.Counter
	retrievalErrors  prometheus.Counter
	turnLatency      *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealership",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"intent", "status"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealership",
			Subsystem: "dialogue",
			Name:      "escalations_total",
			Help:      "Total turns escalated to a human advisor",
		}, []string{"reason"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dealership",
			Subsystem: "dialogue",
			Name:      "bookings_submitted_total",
			Help:      "Total booking requests persisted",
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dealership",
			Subsystem: "dialogue",
			Name:      "retrieval_errors_total",
			Help:      "Total knowledge retrieval failures",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dealership",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of end-to-end turn handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.escalationsTotal, m.bookingsTotal, m.retrievalErrors, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(intent, status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, status).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *DialogueMetrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason).Inc()
}

func (m *DialogueMetrics) ObserveBooking() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}

func (m *DialogueMetrics) ObserveRetrievalError() {
	if m == nil {
		return
	}
	m.retrievalErrors.Inc()
}
