package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDialogueMetricsObserve(t *testing.T) {
	m := NewDialogueMetrics(prometheus.NewRegistry())
	m.ObserveTurn("technical", "ok", 0.25)
	m.ObserveEscalation("HUMAN_REQUESTED")
	m.ObserveBooking()
	m.ObserveRetrievalError()
}

func TestDialogueMetricsNilSafe(t *testing.T) {
	var m *DialogueMetrics
	m.ObserveTurn("booking", "ok", 0.1)
	m.ObserveEscalation("SAFETY")
	m.ObserveBooking()
	m.ObserveRetrievalError()
}
