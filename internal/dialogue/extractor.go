package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/internal/customers"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

var extractorTracer = otel.Tracer("dealership/slot-extractor")

// deterministic extraction patterns, applied before any LLM call
var (
	phonePattern = regexp.MustCompile(`(\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

	servicePattern = regexp.MustCompile(`(?i)\b(oil\s+change|tire\s+rotation|tire\s+change|brake\s+(service|job|pads?|inspection)|alignment|battery\s+(replacement|service|check)|recall|state\s+inspection|inspection|a/?c\s+service|coolant\s+flush|transmission\s+(service|fluid)|wiper\s+blades?|detail(ing)?|diagnostic|check\s+engine|multi-?point|cambio\s+de\s+aceite|rotaci[oó]n\s+de\s+llantas|frenos)\b`)

	datePattern = regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|(next\s+|this\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)|next\s+week|(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?|\d{1,2}/\d{1,2}(/\d{2,4})?|hoy|ma[ñn]ana|(el\s+)?(lunes|martes|mi[eé]rcoles|jueves|viernes|s[aá]bado|domingo))\b`)

	// bare "mañana" means tomorrow, a date; only "por la mañana" is a time
	timePattern = regexp.MustCompile(`(?i)\b(\d{1,2}(:\d{2})?\s*(am|pm)|\d{1,2}:\d{2}|morning|afternoon|evening|noon|first\s+thing|after\s+work|lunch\s*time|por\s+la\s+ma[ñn]ana|(por\s+la\s+)?(tarde|noche)|mediod[ií]a)\b`)

	// capture group stays case-sensitive so filler words never read as names
	namePattern = regexp.MustCompile(`\b(?i:my\s+name\s+is|i'?m|this\s+is|it'?s|me\s+llamo|mi\s+nombre\s+es|soy)\s+([A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+){0,2})`)

	// correction markers let the user overwrite a filled slot
	correctionPattern = regexp.MustCompile(`(?i)\b(actually|no,|not\s+that|i\s+meant|change\s+(it|that)\s+to|instead|make\s+(it|that)|correction|mejor|en\s+realidad|no\s+era)\b`)
)

const extractorPrompt = `Extract appointment details from this car service customer message. Respond with JSON only.

Fields (use "" for anything not mentioned):
- name: the customer's name
- phone: their phone number
- vehicle: their vehicle (make/model/year as stated)
- service_type: the service they want
- preferred_date: the day they mentioned, verbatim
- preferred_time: the time of day they mentioned, verbatim

Do not guess or infer values the customer did not state.

Message: %s

Respond with: {"name": "", "phone": "", "vehicle": "", "service_type": "", "preferred_date": "", "preferred_time": ""}`

// SlotExtractor pulls booking fields out of free-form messages and merges
// them into a draft. Deterministic patterns run first; the LLM only fills
// slots the patterns left empty. Filled slots are never overwritten unless
// the message carries a correction marker. With a nil LLM client the
// extractor runs on patterns alone.
type SlotExtractor struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

// NewSlotExtractor creates a slot extractor. llm may be nil.
func NewSlotExtractor(llm LLMClient, model string, logger *logging.Logger) *SlotExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotExtractor{llm: llm, model: model, logger: logger}
}

// Extract merges whatever the message yields into draft, in place. It returns
// the slots it filled or corrected this turn.
func (e *SlotExtractor) Extract(ctx context.Context, text string, draft *booking.Draft) ([]booking.Slot, error) {
	ctx, span := extractorTracer.Start(ctx, "extractor.extract")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMalformedInput
	}

	correcting := correctionPattern.MatchString(text)
	found := make(map[booking.Slot]string)

	if m := phonePattern.FindString(text); m != "" {
		if normalized := customers.NormalizePhone(m); normalized != "" {
			found[booking.SlotPhone] = normalized
		}
	}
	if partition := detectVehicle(text); partition != "" {
		found[booking.SlotVehicle] = vehicleDisplay(partition)
	}
	if m := servicePattern.FindString(text); m != "" {
		found[booking.SlotService] = strings.ToLower(m)
	}
	if m := datePattern.FindString(text); m != "" {
		found[booking.SlotDate] = strings.ToLower(m)
	}
	if m := timePattern.FindString(text); m != "" {
		found[booking.SlotTime] = strings.ToLower(m)
	}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		found[booking.SlotName] = m[1]
	}

	// LLM pass for whatever the patterns missed, only when slots remain open.
	if e.llm != nil && e.hasOpenSlots(draft, found, correcting) {
		llmFound, err := e.extractLLM(ctx, text)
		if err != nil {
			e.logger.Warn("llm slot extraction failed, keeping pattern results", "error", err.Error())
		} else {
			for slot, value := range llmFound {
				if _, ok := found[slot]; !ok {
					found[slot] = value
				}
			}
		}
	}

	var filled []booking.Slot
	for slot, value := range found {
		current := draft.Get(slot)
		switch {
		case current == "":
			draft.Set(slot, value)
			filled = append(filled, slot)
		case correcting && !strings.EqualFold(current, value):
			draft.Set(slot, value)
			filled = append(filled, slot)
		case slot == booking.SlotVehicle && draft.VehicleSuggested:
			// An explicit mention overrides a history-based suggestion.
			draft.Set(slot, value)
			filled = append(filled, slot)
		}
	}

	span.SetAttributes(
		attribute.Int("extractor.filled", len(filled)),
		attribute.Bool("extractor.correcting", correcting),
	)
	return filled, nil
}

// hasOpenSlots reports whether any slot is still unfilled after the pattern
// pass, or a correction could touch a slot the patterns missed.
func (e *SlotExtractor) hasOpenSlots(draft *booking.Draft, found map[booking.Slot]string, correcting bool) bool {
	if correcting {
		return true
	}
	for _, slot := range draft.Missing() {
		if _, ok := found[slot]; !ok {
			return true
		}
	}
	return false
}

func (e *SlotExtractor) extractLLM(ctx context.Context, text string) (map[booking.Slot]string, error) {
	prompt := strings.Replace(extractorPrompt, "%s", text, 1)

	resp, err := e.llm.Complete(ctx, LLMRequest{
		Model:     e.model,
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens: 150,
	})
	if err != nil {
		return nil, fmt.Errorf("dialogue: slot extraction: %w", err)
	}

	var result struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Vehicle string `json:"vehicle"`
		Service string `json:"service_type"`
		Date    string `json:"preferred_date"`
		Time    string `json:"preferred_time"`
	}

	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, nil
	}

	found := make(map[booking.Slot]string)
	if v := strings.TrimSpace(result.Name); v != "" {
		found[booking.SlotName] = v
	}
	if v := customers.NormalizePhone(result.Phone); v != "" {
		found[booking.SlotPhone] = v
	}
	if v := strings.TrimSpace(result.Vehicle); v != "" {
		found[booking.SlotVehicle] = v
	}
	if v := strings.TrimSpace(result.Service); v != "" {
		found[booking.SlotService] = v
	}
	if v := strings.TrimSpace(result.Date); v != "" {
		found[booking.SlotDate] = v
	}
	if v := strings.TrimSpace(result.Time); v != "" {
		found[booking.SlotTime] = v
	}
	return found, nil
}
