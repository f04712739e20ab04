package dialogue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/internal/customers"
	"github.com/jmoran41/dealership-ai-assistant/internal/knowledge"
	"github.com/jmoran41/dealership-ai-assistant/internal/messaging"
	"github.com/jmoran41/dealership-ai-assistant/internal/session"
)

type fakeNotifier struct {
	mu              sync.Mutex
	bookings        []booking.Appointment
	escalations     []string
	escalationTurns [][]string
}

func (f *fakeNotifier) BookingRequested(ctx context.Context, appt booking.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, appt)
	return nil
}

func (f *fakeNotifier) Escalation(ctx context.Context, userID, message string, recentTurns []string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations = append(f.escalations, reason)
	f.escalationTurns = append(f.escalationTurns, recentTurns)
	return nil
}

type orchestratorFixture struct {
	orch      *Orchestrator
	retriever *fakeRetriever
	notifier  *fakeNotifier
	store     *booking.FileStore
	llm       *stubLLMClient
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	idx, err := customers.BuildIndex([]customers.Row{
		{Tag: "T1", RO: "RO1", Vehicle: "CIVIC 25", Name: "John Doe", Phone: "(954) 123-4567", Service: "TIRE ROTATION"},
		{Tag: "T2", RO: "RO2", Vehicle: "CIVIC 25", Name: "John Doe", Phone: "954-123-4567", Service: "OIL CHANGE"},
	}, nil)
	require.NoError(t, err)

	store, err := booking.NewFileStore(filepath.Join(t.TempDir(), "appointments.jsonl"))
	require.NoError(t, err)

	retriever := &fakeRetriever{passages: map[string][]knowledge.Passage{
		"civic-2025": {{Text: "Recommended tire pressure is 33 psi.", Score: 0.9}},
	}}
	llm := &stubLLMClient{response: "Your Civic's recommended tire pressure is 33 psi."}
	notifier := &fakeNotifier{}

	orch := NewOrchestrator(OrchestratorDeps{
		Sessions:     session.NewStore(time.Hour, nil),
		Router:       NewIntentRouter(nil, "", nil),
		Extractor:    NewSlotExtractor(nil, "", nil),
		Escalations:  NewEscalationDetector(nil),
		Synthesizer:  NewAnswerSynthesizer(retriever, llm, "test-model", 0, nil),
		Customers:    idx,
		Appointments: store,
		Notifier:     notifier,
	})
	return &orchestratorFixture{orch: orch, retriever: retriever, notifier: notifier, store: store, llm: llm}
}

func (f *orchestratorFixture) send(t *testing.T, userID, text string) messaging.Outbound {
	t.Helper()
	out, err := f.orch.HandleMessage(context.Background(), messaging.Inbound{UserID: userID, Text: text})
	require.NoError(t, err)
	return out
}

func TestBookingFlowWithReturningCustomer(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "I'd like to schedule an oil change")
	assert.Contains(t, out.Text, "phone number")

	// Phone triggers the customer match; name and vehicle come from history,
	// and the match is acknowledged out loud.
	out = f.send(t, "u1", "954-123-4567")
	assert.Contains(t, out.Text, "Welcome back, John Doe!")
	assert.Contains(t, out.Text, "CIVIC 25")
	assert.Contains(t, out.Text, "day")

	out = f.send(t, "u1", "tomorrow morning")
	assert.Contains(t, out.Text, "John Doe")
	assert.Contains(t, out.Text, "(954) 123-4567")
	assert.Contains(t, out.Text, "CIVIC 25")
	assert.Contains(t, out.Text, "oil change")
	assert.Contains(t, out.Text, "Is that right?")

	out = f.send(t, "u1", "yes")
	assert.Contains(t, out.Text, "All set, John Doe!")
	assert.NotContains(t, out.Text, "JOHN DOE")
	assert.Contains(t, out.Text, "submitted")

	appts, err := f.store.ReadAll()
	require.NoError(t, err)
	require.Len(t, appts, 1)
	appt := appts[0]
	assert.Equal(t, "JOHN DOE", appt.Name)
	assert.Equal(t, "9541234567", appt.Phone)
	assert.Equal(t, "CIVIC 25", appt.Vehicle)
	assert.Equal(t, "tomorrow", appt.Date)
	assert.Equal(t, "morning", appt.Time)
	assert.True(t, appt.Returning)
	assert.Equal(t, 2, appt.VisitCount)

	require.Len(t, f.notifier.bookings, 1)
	assert.True(t, f.notifier.bookings[0].Returning)

	// A follow-up lands back in idle mode.
	out = f.send(t, "u1", "thanks!")
	assert.Equal(t, string(IntentGeneral), out.Intent)
}

func TestBookingCancelled(t *testing.T) {
	f := newFixture(t)

	f.send(t, "u1", "can I book an appointment")
	out := f.send(t, "u1", "cancel")
	assert.Contains(t, out.Text, "cancelled")

	out = f.send(t, "u1", "how do I check tire pressure on my civic")
	assert.Equal(t, string(IntentTechnical), out.Intent)
}

func TestTechnicalAnswerUsesVehiclePartition(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "what tire pressure should my civic run?")
	assert.Contains(t, out.Text, "33 psi")
	require.NotEmpty(t, f.retriever.queries)
	for _, q := range f.retriever.queries {
		assert.Contains(t, q, "civic-2025|")
	}
}

func TestTechnicalVehicleContinuity(t *testing.T) {
	f := newFixture(t)

	f.send(t, "u1", "what tire pressure should my civic run?")

	// No vehicle mention; the session remembers the civic.
	f.send(t, "u1", "how do I reset the oil life display?")
	require.Len(t, f.retriever.queries, 2)
	assert.Contains(t, f.retriever.queries[1], "civic-2025|")
}

func TestTechnicalWithoutVehicleAsksForIt(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "how do I turn on the fog lights?")
	assert.Contains(t, out.Text, "Which vehicle")
	assert.Contains(t, out.Text, "Civic")
	assert.Empty(t, f.retriever.queries)
}

func TestRetrievalOutageDegrades(t *testing.T) {
	f := newFixture(t)
	f.retriever.err = fmt.Errorf("redis down: %w", knowledge.ErrRetrievalUnavailable)

	out := f.send(t, "u1", "what oil does my civic take?")
	assert.Equal(t, replyDegraded.en, out.Text)
	// One retry after the transient failure.
	assert.Len(t, f.retriever.queries, 2)
}

func TestEscalationOverridesBookingFlow(t *testing.T) {
	f := newFixture(t)

	f.send(t, "u1", "I'd like to schedule a brake inspection")
	out := f.send(t, "u1", "forget it, I want to talk to a human")

	assert.True(t, out.Escalated)
	assert.Contains(t, out.Text, "service advisor")
	require.Len(t, f.notifier.escalations, 1)
	assert.Equal(t, string(EscalationHumanAsk), f.notifier.escalations[0])

	// The alert carries the conversation so far, not just the last message.
	require.Len(t, f.notifier.escalationTurns, 1)
	assert.Contains(t, f.notifier.escalationTurns[0], "I'd like to schedule a brake inspection")

	// The booking draft is gone; a new message routes fresh.
	out = f.send(t, "u1", "what tire pressure for my civic?")
	assert.Equal(t, string(IntentTechnical), out.Intent)
}

func TestSafetyEscalation(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "my brakes went out on the highway")
	assert.True(t, out.Escalated)
	require.Len(t, f.notifier.escalations, 1)
	assert.Equal(t, string(EscalationSafety), f.notifier.escalations[0])
}

func TestManualHasNoAnswer(t *testing.T) {
	f := newFixture(t)
	f.llm.response = "NO_ANSWER_FOUND"

	out := f.send(t, "u1", "what is the towing capacity of my civic?")
	assert.Equal(t, replyNoAnswer.en, out.Text)
}

func TestEmptyMessage(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "   ")
	assert.Equal(t, replyEmptyInput.en, out.Text)
}

func TestMissingUserIDRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.HandleMessage(context.Background(), messaging.Inbound{Text: "hello"})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSpanishBookingPrompts(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "hola, necesito una cita para mi carro")
	assert.Contains(t, out.Text, "número de teléfono")
}

func TestSpanishSurvivesDigitOnlyReplies(t *testing.T) {
	f := newFixture(t)

	out := f.send(t, "u1", "hola, necesito una cita para mi carro")
	assert.Contains(t, out.Text, "número de teléfono")

	// A phone number carries no language signal; the conversation stays
	// in Spanish.
	out = f.send(t, "u1", "954-123-4567")
	assert.Contains(t, out.Text, "John Doe")
	assert.Contains(t, out.Text, "servicio")
	assert.NotContains(t, out.Text, "Welcome back")
}

func TestUsersDoNotShareState(t *testing.T) {
	f := newFixture(t)

	f.send(t, "u1", "what tire pressure should my civic run?")
	out := f.send(t, "u2", "how do I turn on the fog lights?")
	assert.Contains(t, out.Text, "Which vehicle", "u2 must not inherit u1's vehicle")
}

func TestConcurrentUsers(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n%3)
			_, err := f.orch.HandleMessage(context.Background(), messaging.Inbound{
				UserID: userID, Text: "what tire pressure should my civic run?",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
