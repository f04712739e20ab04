package dialogue

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

var escalationTracer = otel.Tracer("dealership/escalation-detector")

// EscalationReason classifies why a turn was escalated to a human advisor.
type EscalationReason string

const (
	EscalationNone       EscalationReason = ""
	EscalationFrustrated EscalationReason = "FRUSTRATED"
	EscalationHumanAsk   EscalationReason = "HUMAN_REQUESTED"
	EscalationSafety     EscalationReason = "SAFETY"
	EscalationRepeated   EscalationReason = "REPEATED_FAILURE"
)

// EscalationResult contains the result of escalation detection for one turn.
type EscalationResult struct {
	Detected       bool
	Reason         EscalationReason
	Confidence     float64
	MatchedKeyword string
}

// EscalationDetector spots turns that must go to a human: explicit requests,
// frustration, safety-critical symptoms, and repeated-failure streaks across
// recent turns.
type EscalationDetector struct {
	logger   *logging.Logger
	patterns map[EscalationReason][]*escalationPattern
}

type escalationPattern struct {
	regex   *regexp.Regexp
	weight  float64
	keyword string
}

// NewEscalationDetector creates an escalation detector.
func NewEscalationDetector(logger *logging.Logger) *EscalationDetector {
	if logger == nil {
		logger = logging.Default()
	}

	d := &EscalationDetector{
		logger:   logger,
		patterns: make(map[EscalationReason][]*escalationPattern),
	}

	// Explicit requests for a person
	d.patterns[EscalationHumanAsk] = []*escalationPattern{
		{regex: regexp.MustCompile(`(?i)\b(talk|speak)\s+(to|with)\s+(a\s+)?(human|person|someone|advisor|manager|real\s+person)\b`), weight: 0.95, keyword: "speak to a human"},
		{regex: regexp.MustCompile(`(?i)\b(real|actual|live)\s+(person|human|agent)\b`), weight: 0.9, keyword: "real person"},
		{regex: regexp.MustCompile(`(?i)\b(get|need|want)\s+(me\s+)?(a\s+)?(manager|supervisor|advisor)\b`), weight: 0.9, keyword: "want manager"},
		{regex: regexp.MustCompile(`(?i)\bstop\s+(the\s+)?(bot|robot|ai)\b`), weight: 0.85, keyword: "stop the bot"},
		{regex: regexp.MustCompile(`(?i)\bhablar\s+con\s+(una?\s+)?(persona|humano|asesor)\b`), weight: 0.95, keyword: "hablar con persona"},
	}

	// Frustration and anger
	d.patterns[EscalationFrustrated] = []*escalationPattern{
		{regex: regexp.MustCompile(`(?i)\bthis\s+is\s+(ridiculous|absurd|unacceptable|useless)\b`), weight: 0.9, keyword: "this is ridiculous"},
		{regex: regexp.MustCompile(`(?i)\b(angry|furious|fed\s+up|frustrated)\b`), weight: 0.8, keyword: "frustrated"},
		{regex: regexp.MustCompile(`(?i)\byou('re| are)\s+(not|no)\s+help(ing|ful)?\b`), weight: 0.85, keyword: "not helping"},
		{regex: regexp.MustCompile(`(?i)\b(worst|terrible|horrible)\s+(service|experience|dealership)\b`), weight: 0.85, keyword: "terrible service"},
		{regex: regexp.MustCompile(`(?i)\bwaste\s+of\s+(my\s+)?time\b`), weight: 0.8, keyword: "waste of time"},
		{regex: regexp.MustCompile(`(?i)\b(sue|lawyer|attorney|lawsuit|bbb|better\s+business)\b`), weight: 0.9, keyword: "legal threat"},
	}

	// Safety-critical symptoms that a bot must not troubleshoot
	d.patterns[EscalationSafety] = []*escalationPattern{
		{regex: regexp.MustCompile(`(?i)\b(brakes?\s+(fail(ed|ing)?|don'?t\s+work|not\s+working|went\s+out))\b`), weight: 0.95, keyword: "brake failure"},
		{regex: regexp.MustCompile(`(?i)\b(smoke|smoking|on\s+fire|burning\s+smell)\b`), weight: 0.95, keyword: "smoke or fire"},
		{regex: regexp.MustCompile(`(?i)\b(stalled?|died)\s+(on|in)\s+(the\s+)?(highway|freeway|road|traffic)\b`), weight: 0.9, keyword: "stalled in traffic"},
		{regex: regexp.MustCompile(`(?i)\b(accident|crash(ed)?|collision)\b`), weight: 0.85, keyword: "accident"},
		{regex: regexp.MustCompile(`(?i)\bairbag\s+(light|warning|deployed)\b`), weight: 0.85, keyword: "airbag warning"},
		{regex: regexp.MustCompile(`(?i)\bsteering\s+(lock(ed)?|fail(ed|ing)?|not\s+responding)\b`), weight: 0.9, keyword: "steering failure"},
	}

	return d
}

// negative markers counted across recent turns for the repeated-failure rule
var negativeTurnPattern = regexp.MustCompile(`(?i)\b(didn'?t\s+(work|help)|still\s+(broken|not\s+working|doesn'?t)|that'?s\s+(wrong|not\s+it)|no,?\s+that'?s\s+not|not\s+what\s+i\s+(asked|meant)|tried\s+that\s+already|you\s+already\s+said)\b`)

// Detect analyzes one message, plus the recent turn history, for escalation
// signals. A single-turn pattern match escalates on its own; otherwise two or
// more consecutive negative turns (counting the current one) escalate with
// reason REPEATED_FAILURE.
func (d *EscalationDetector) Detect(ctx context.Context, message string, recentTurns []string) *EscalationResult {
	ctx, span := escalationTracer.Start(ctx, "escalation.detect")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return &EscalationResult{Detected: false}
	}

	var best *EscalationResult
	for reason, patterns := range d.patterns {
		for _, p := range patterns {
			if p.regex.MatchString(message) {
				if best == nil || p.weight > best.Confidence {
					best = &EscalationResult{
						Detected:       true,
						Reason:         reason,
						Confidence:     p.weight,
						MatchedKeyword: p.keyword,
					}
				}
			}
		}
	}

	if best == nil && negativeTurnPattern.MatchString(message) {
		streak := 1
		for i := len(recentTurns) - 1; i >= 0; i-- {
			if !negativeTurnPattern.MatchString(recentTurns[i]) {
				break
			}
			streak++
		}
		if streak >= 2 {
			best = &EscalationResult{
				Detected:       true,
				Reason:         EscalationRepeated,
				Confidence:     0.75,
				MatchedKeyword: "negative streak",
			}
		}
	}

	if best == nil {
		return &EscalationResult{Detected: false}
	}

	span.SetAttributes(
		attribute.Bool("escalation.detected", true),
		attribute.String("escalation.reason", string(best.Reason)),
		attribute.Float64("escalation.confidence", best.Confidence),
		attribute.String("escalation.keyword", best.MatchedKeyword),
	)

	d.logger.Info("escalation detected",
		"reason", best.Reason,
		"confidence", best.Confidence,
		"keyword", best.MatchedKeyword,
	)

	return best
}
