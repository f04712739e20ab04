package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

var routerTracer = otel.Tracer("dealership/intent-router")

// fast-path keyword patterns, checked before any LLM call
var (
	bookingPattern = regexp.MustCompile(`(?i)\b(book|schedule|appointment|appt|bring\s+(it|my\s+\w+)\s+in|come\s+in|drop\s+off|set\s+up\s+a\s+(time|visit)|reservar?|agendar|cita)\b`)

	technicalPattern = regexp.MustCompile(`(?i)\b(how\s+(do|to|can)|what\s+(is|does|kind|type)|why\s+(is|does|won'?t)|warning\s+light|dashboard|oil\s+type|tire\s+pressure|psi|reset|manual|maintenance\s+(minder|schedule)|tpms|fluid|fuse|wiper|brake\s+pad|battery|bluetooth|carplay|android\s+auto)\b`)
)

const routerPrompt = `Classify this message from a car dealership service customer. Respond with JSON only.

Intents:
- technical: question about how the vehicle works, maintenance, warning lights, features
- booking: wants to schedule, change, or ask about a service appointment
- escalation: angry, wants a human, or describes an unsafe vehicle condition
- general: greetings, thanks, anything else

Vehicles we support: civic-2025, ridgeline-2025, passport-2026. Use "" if no vehicle is mentioned.

Message: %s

Respond with: {"intent": "<intent>", "vehicle": "<vehicle or empty>", "confidence": <0.0-1.0>}`

// IntentRouter classifies each inbound message into an intent and resolves
// any vehicle mention. Cheap keyword rules run first; the LLM is only
// consulted for messages the rules cannot place. With a nil LLM client the
// router runs in rule-only mode.
type IntentRouter struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

// NewIntentRouter creates an intent router. llm may be nil.
func NewIntentRouter(llm LLMClient, model string, logger *logging.Logger) *IntentRouter {
	if logger == nil {
		logger = logging.Default()
	}
	return &IntentRouter{llm: llm, model: model, logger: logger}
}

// Route classifies one message. The escalation decision is made upstream by
// the EscalationDetector; Route never returns IntentEscalation on its own
// unless the LLM does, and even then the orchestrator treats the detector as
// authoritative.
func (r *IntentRouter) Route(ctx context.Context, text string) (IntentDecision, error) {
	ctx, span := routerTracer.Start(ctx, "router.route")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return IntentDecision{Intent: IntentGeneral, Confidence: 1.0}, ErrMalformedInput
	}

	vehicle := detectVehicle(text)

	// Fast path: unambiguous keyword hits skip the LLM entirely.
	if bookingPattern.MatchString(text) {
		return r.finish(span, IntentDecision{Intent: IntentBooking, Vehicle: vehicle, Confidence: 0.9}, "keyword")
	}
	if technicalPattern.MatchString(text) {
		return r.finish(span, IntentDecision{Intent: IntentTechnical, Vehicle: vehicle, Confidence: 0.85}, "keyword")
	}

	if r.llm == nil {
		// Rule-only mode: a vehicle mention without booking keywords is most
		// likely a manual question.
		if vehicle != "" {
			return r.finish(span, IntentDecision{Intent: IntentTechnical, Vehicle: vehicle, Confidence: 0.6}, "rules")
		}
		return r.finish(span, IntentDecision{Intent: IntentGeneral, Confidence: 0.5}, "rules")
	}

	decision, err := r.classify(ctx, text)
	if err != nil {
		r.logger.Warn("intent classification failed, degrading to general", "error", err.Error())
		return r.finish(span, IntentDecision{Intent: IntentGeneral, Vehicle: vehicle, Confidence: 0.3}, "degraded")
	}

	// A locally detected vehicle mention outranks whatever the model said.
	if vehicle != "" {
		decision.Vehicle = vehicle
	}
	return r.finish(span, decision, "llm")
}

func (r *IntentRouter) finish(span trace.Span, d IntentDecision, source string) (IntentDecision, error) {
	span.SetAttributes(
		attribute.String("router.intent", string(d.Intent)),
		attribute.String("router.vehicle", d.Vehicle),
		attribute.Float64("router.confidence", d.Confidence),
		attribute.String("router.source", source),
	)
	return d, nil
}

func (r *IntentRouter) classify(ctx context.Context, text string) (IntentDecision, error) {
	prompt := strings.Replace(routerPrompt, "%s", text, 1)

	resp, err := r.llm.Complete(ctx, LLMRequest{
		Model:     r.model,
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens: 60,
	})
	if err != nil {
		return IntentDecision{}, fmt.Errorf("dialogue: intent classification: %w", err)
	}

	var result struct {
		Intent     string  `json:"intent"`
		Vehicle    string  `json:"vehicle"`
		Confidence float64 `json:"confidence"`
	}

	// Extract JSON from the response; the model may add extra text.
	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return IntentDecision{Intent: IntentGeneral, Confidence: 0.3}, nil
	}

	intent := Intent(result.Intent)
	switch intent {
	case IntentTechnical, IntentBooking, IntentEscalation, IntentGeneral:
	default:
		intent = IntentGeneral
	}

	vehicle := result.Vehicle
	if !isVehiclePartition(vehicle) {
		vehicle = ""
	}

	confidence := result.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0.5
	}

	return IntentDecision{Intent: intent, Vehicle: vehicle, Confidence: confidence}, nil
}
