package dialogue

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/internal/customers"
	"github.com/jmoran41/dealership-ai-assistant/internal/messaging"
	"github.com/jmoran41/dealership-ai-assistant/internal/observability/metrics"
	"github.com/jmoran41/dealership-ai-assistant/internal/session"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

var orchestratorTracer = otel.Tracer("dealership/orchestrator")

// AdvisorNotifier pushes events a human advisor must see. Implementations
// must be safe for concurrent use.
type AdvisorNotifier interface {
	BookingRequested(ctx context.Context, appt booking.Appointment) error
	Escalation(ctx context.Context, userID, message string, recentTurns []string, reason string) error
}

// confirmation turn patterns
var (
	yesPattern = regexp.MustCompile(`(?i)^\s*(yes|yep|yeah|yup|sure|correct|right|confirm(ed)?|that'?s\s+right|looks\s+good|s[ií]|claro|correcto|as[ií]\s+es)\b`)
	noPattern  = regexp.MustCompile(`(?i)^\s*(no|nope|nah|cancel|stop|forget\s+it|never\s*mind|nevermind|cancelar|olv[ií]dalo)\b`)
)

// Orchestrator drives the per-turn state machine: escalation check first,
// then either the in-flight booking flow or fresh intent routing. A per-user
// mutex serializes turns so concurrent messages from one user can never
// interleave session mutations; turns for different users run in parallel.
type Orchestrator struct {
	sessions     *session.Store
	router       *IntentRouter
	extractor    *SlotExtractor
	escalations  *EscalationDetector
	synthesizer  *AnswerSynthesizer
	customers    *customers.Index
	appointments booking.Store
	notifier     AdvisorNotifier
	metrics      *metrics.DialogueMetrics
	logger       *logging.Logger

	userLocks sync.Map // userID -> *sync.Mutex
}

// OrchestratorDeps collects the orchestrator's collaborators. Notifier and
// Metrics may be nil; everything else is required.
type OrchestratorDeps struct {
	Sessions     *session.Store
	Router       *IntentRouter
	Extractor    *SlotExtractor
	Escalations  *EscalationDetector
	Synthesizer  *AnswerSynthesizer
	Customers    *customers.Index
	Appointments booking.Store
	Notifier     AdvisorNotifier
	Metrics      *metrics.DialogueMetrics
	Logger       *logging.Logger
}

// NewOrchestrator wires the dialogue core together.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		sessions:     deps.Sessions,
		router:       deps.Router,
		extractor:    deps.Extractor,
		escalations:  deps.Escalations,
		synthesizer:  deps.Synthesizer,
		customers:    deps.Customers,
		appointments: deps.Appointments,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

func (o *Orchestrator) lockFor(userID string) *sync.Mutex {
	mu, _ := o.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleMessage processes one inbound message end to end and always returns
// a sendable reply. Upstream failures degrade to canned text; the error
// return is reserved for programmer mistakes (empty user id).
func (o *Orchestrator) HandleMessage(ctx context.Context, in messaging.Inbound) (messaging.Outbound, error) {
	ctx, span := orchestratorTracer.Start(ctx, "orchestrator.handle_message")
	defer span.End()

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return messaging.Outbound{}, fmt.Errorf("dialogue: inbound message without user id: %w", ErrMalformedInput)
	}
	span.SetAttributes(attribute.String("dialogue.user_id", userID))

	mu := o.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	sess := o.sessions.Get(userID)
	defer o.sessions.Touch(userID)

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return o.reply(sess, IntentGeneral, "ok", start, replyEmptyInput.in(sess.Language), false), nil
	}

	sess.Language = updateLanguage(sess.Language, text)

	// Escalation always wins, regardless of conversation mode.
	if esc := o.escalations.Detect(ctx, text, sess.RecentTurns); esc.Detected {
		o.metrics.ObserveEscalation(string(esc.Reason))
		o.notifyEscalation(ctx, userID, text, sess.RecentTurns, string(esc.Reason))
		sess.ResetToIdle()
		sess.RememberTurn(text)
		return o.reply(sess, IntentEscalation, "ok", start, replyEscalated.in(sess.Language), true), nil
	}

	var out messaging.Outbound
	switch sess.Mode {
	case session.ModeConfirming:
		out = o.handleConfirming(ctx, sess, text, start)
	case session.ModeCollecting:
		out = o.handleCollecting(ctx, sess, text, start)
	default:
		out = o.handleRouted(ctx, sess, text, start)
	}

	sess.RememberTurn(text)
	return out, nil
}

// handleRouted classifies a fresh message and dispatches it.
func (o *Orchestrator) handleRouted(ctx context.Context, sess *session.Session, text string, start time.Time) messaging.Outbound {
	decision, err := o.router.Route(ctx, text)
	if err != nil {
		o.logger.Warn("routing failed", "error", err.Error())
	}

	if decision.Vehicle != "" {
		sess.Vehicle = decision.Vehicle
	}

	switch decision.Intent {
	case IntentBooking:
		sess.Mode = session.ModeCollecting
		if sess.Vehicle != "" && sess.Draft.Vehicle == "" {
			sess.Draft.Vehicle = vehicleDisplay(sess.Vehicle)
		}
		return o.handleCollecting(ctx, sess, text, start)

	case IntentTechnical:
		return o.handleTechnical(ctx, sess, text, start)

	default:
		return o.reply(sess, IntentGeneral, "ok", start, replyGeneral.in(sess.Language), false)
	}
}

// handleTechnical answers a manual question, asking for the vehicle first
// when no partition is in play.
func (o *Orchestrator) handleTechnical(ctx context.Context, sess *session.Session, text string, start time.Time) messaging.Outbound {
	if sess.Vehicle == "" {
		return o.reply(sess, IntentTechnical, "ok", start, vehiclePrompt(sess.Language), false)
	}
	sess.Mode = session.ModeTechnical

	var answer string
	var found bool
	err := withRetry(ctx, func() error {
		var innerErr error
		answer, found, innerErr = o.synthesizer.Answer(ctx, sess.Vehicle, text, sess.RecentTurns, sess.Language)
		return innerErr
	})
	if err != nil {
		o.metrics.ObserveRetrievalError()
		o.logger.Error("answer synthesis failed", "vehicle", sess.Vehicle, "error", err.Error())
		return o.reply(sess, IntentTechnical, "degraded", start, replyDegraded.in(sess.Language), false)
	}
	if !found {
		return o.reply(sess, IntentTechnical, "ok", start, replyNoAnswer.in(sess.Language), false)
	}
	return o.reply(sess, IntentTechnical, "ok", start, answer, false)
}

// handleCollecting merges new slot values into the draft and either asks for
// the next missing field or moves to confirmation.
func (o *Orchestrator) handleCollecting(ctx context.Context, sess *session.Session, text string, start time.Time) messaging.Outbound {
	if noPattern.MatchString(text) && !correctionPattern.MatchString(text) {
		sess.ResetToIdle()
		return o.reply(sess, IntentBooking, "ok", start, replyBookingCancelled.in(sess.Language), false)
	}

	filled, err := o.extractor.Extract(ctx, text, &sess.Draft)
	if err != nil {
		o.logger.Warn("slot extraction failed", "error", err.Error())
	}

	greeting := ""
	for _, slot := range filled {
		if slot == booking.SlotPhone {
			if record, ok := o.prefillFromHistory(sess); ok {
				suggested := ""
				if sess.Draft.VehicleSuggested {
					suggested = sess.Draft.Vehicle
				}
				greeting = returningCustomerGreeting(displayName(record.Name), suggested, sess.Language)
			}
		}
	}

	if sess.Draft.Complete() {
		sess.Mode = session.ModeConfirming
		return o.reply(sess, IntentBooking, "ok", start,
			greeting+confirmationPrompt(o.draftSummary(sess.Draft), sess.Language), false)
	}

	missing := sess.Draft.Missing()
	return o.reply(sess, IntentBooking, "ok", start,
		greeting+promptForSlot(string(missing[0]), sess.Language), false)
}

// handleConfirming interprets the user's answer to the booking summary.
func (o *Orchestrator) handleConfirming(ctx context.Context, sess *session.Session, text string, start time.Time) messaging.Outbound {
	switch {
	case yesPattern.MatchString(text):
		return o.submitBooking(ctx, sess, start)

	case noPattern.MatchString(text) && !correctionPattern.MatchString(text) && len(strings.Fields(text)) <= 3:
		// A bare "no" abandons the request; longer answers carry corrections.
		sess.ResetToIdle()
		return o.reply(sess, IntentBooking, "ok", start, replyBookingCancelled.in(sess.Language), false)

	default:
		// Treat anything else as a correction attempt, then re-confirm.
		if _, err := o.extractor.Extract(ctx, text, &sess.Draft); err != nil {
			o.logger.Warn("slot extraction failed", "error", err.Error())
		}
		if sess.Draft.Complete() {
			return o.reply(sess, IntentBooking, "ok", start,
				confirmationPrompt(o.draftSummary(sess.Draft), sess.Language), false)
		}
		sess.Mode = session.ModeCollecting
		missing := sess.Draft.Missing()
		return o.reply(sess, IntentBooking, "ok", start,
			promptForSlot(string(missing[0]), sess.Language), false)
	}
}

// submitBooking persists the confirmed draft and alerts an advisor.
func (o *Orchestrator) submitBooking(ctx context.Context, sess *session.Session, start time.Time) messaging.Outbound {
	appt := booking.NewAppointment(sess.Draft)
	if record, ok := o.customers.Lookup(sess.Draft.Phone); ok {
		appt.Returning = true
		appt.VisitCount = record.VisitCount
		appt.LastService = record.LastService
	}

	err := withRetry(ctx, func() error {
		return o.appointments.Append(ctx, appt)
	})
	if err != nil {
		o.logger.Error("appointment persistence failed", "error", err.Error())
		return o.reply(sess, IntentBooking, "degraded", start, replyDegraded.in(sess.Language), false)
	}

	o.metrics.ObserveBooking()
	if o.notifier != nil {
		if err := o.notifier.BookingRequested(ctx, appt); err != nil {
			// The booking is already persisted; a failed alert must not fail the turn.
			o.logger.Error("advisor notification failed", "appointment_id", appt.ID, "error", err.Error())
		}
	}

	name := displayName(sess.Draft.Name)
	reply := bookingSubmittedReply(name, sess.Language)
	sess.ResetToIdle()
	return o.reply(sess, IntentBooking, "ok", start, reply, false)
}

// prefillFromHistory fills name and vehicle from the customer record once a
// phone number is known. The vehicle is only a suggestion; anything the user
// states explicitly replaces it. Reports the matched record so the caller can
// greet the returning customer.
func (o *Orchestrator) prefillFromHistory(sess *session.Session) (customers.Record, bool) {
	record, ok := o.customers.Lookup(sess.Draft.Phone)
	if !ok {
		return customers.Record{}, false
	}
	if sess.Draft.Name == "" && record.Name != "" {
		sess.Draft.Name = record.Name
	}
	if sess.Draft.Vehicle == "" && len(record.Vehicles) > 0 {
		sess.Draft.Vehicle = record.Vehicles[0]
		sess.Draft.VehicleSuggested = true
	}
	o.logger.Info("returning customer matched",
		"phone", sess.Draft.Phone,
		"visits", record.VisitCount,
	)
	return record, true
}

func (o *Orchestrator) notifyEscalation(ctx context.Context, userID, text string, recentTurns []string, reason string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Escalation(ctx, userID, text, recentTurns, reason); err != nil {
		o.logger.Error("escalation notification failed", "user_id", userID, "error", err.Error())
	}
}

func (o *Orchestrator) draftSummary(d booking.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", displayName(d.Name))
	fmt.Fprintf(&b, "Phone: %s\n", customers.FormatPhone(d.Phone))
	fmt.Fprintf(&b, "Vehicle: %s\n", d.Vehicle)
	fmt.Fprintf(&b, "Service: %s\n", d.Service)
	fmt.Fprintf(&b, "Date: %s\n", d.Date)
	fmt.Fprintf(&b, "Time: %s", d.Time)
	return b.String()
}

func (o *Orchestrator) reply(sess *session.Session, intent Intent, status string, start time.Time, text string, escalated bool) messaging.Outbound {
	o.metrics.ObserveTurn(string(intent), status, time.Since(start).Seconds())
	return messaging.Outbound{
		UserID:    sess.UserID,
		Text:      text,
		Intent:    string(intent),
		Escalated: escalated,
	}
}
