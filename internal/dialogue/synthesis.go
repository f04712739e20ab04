package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"

	"github.com/jmoran41/dealership-ai-assistant/internal/knowledge"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

var synthesisTracer = otel.Tracer("dealership/answer-synthesizer")

// noAnswerSentinel is what the model must emit when the retrieved passages do
// not contain the answer. It never reaches the customer.
const noAnswerSentinel = "NO_ANSWER_FOUND"

const synthesisSystemPrompt = `You are a service assistant for a Honda dealership. Answer the customer's question using ONLY the owner's manual excerpts provided below. Rules:
- If the excerpts do not contain the answer, reply with exactly: NO_ANSWER_FOUND
- Never invent procedures, torque values, capacities, or part numbers.
- Keep answers short and practical, suitable for a text message.
- Answer in %s.

Owner's manual excerpts for the %s:
%s`

const contextualizePrompt = `Rewrite the customer's latest message as one standalone question about their vehicle, filling in anything it refers to from the recent messages. If it already stands on its own, return it unchanged. Reply with the question only, no extra text.

Recent messages:
%s

Latest message: %s`

// AnswerSynthesizer turns a technical question into a grounded answer: it
// retrieves manual passages for the vehicle's partition and has the LLM
// answer strictly from them.
type AnswerSynthesizer struct {
	retriever knowledge.Retriever
	llm       LLMClient
	model     string
	topK      int
	logger    *logging.Logger
}

// NewAnswerSynthesizer creates an answer synthesizer. topK <= 0 uses the
// retriever's default.
func NewAnswerSynthesizer(retriever knowledge.Retriever, llm LLMClient, model string, topK int, logger *logging.Logger) *AnswerSynthesizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &AnswerSynthesizer{
		retriever: retriever,
		llm:       llm,
		model:     model,
		topK:      topK,
		logger:    logger,
	}
}

// Answer retrieves passages from the vehicle's partition and synthesizes a
// grounded reply. Follow-up questions are first rewritten into standalone
// form using the recent turns. It returns found=false when the manual has no
// answer, and an error when retrieval or the LLM is unavailable.
func (s *AnswerSynthesizer) Answer(ctx context.Context, partition, question string, recentTurns []string, tag language.Tag) (answer string, found bool, err error) {
	ctx, span := synthesisTracer.Start(ctx, "synthesis.answer")
	defer span.End()
	span.SetAttributes(attribute.String("synthesis.partition", partition))

	question = s.contextualize(ctx, question, recentTurns)

	passages, err := s.retriever.Retrieve(ctx, partition, question, s.topK)
	if err != nil {
		if errors.Is(err, knowledge.ErrRetrievalUnavailable) {
			return "", false, transient("knowledge retrieval", err)
		}
		return "", false, fmt.Errorf("dialogue: answer synthesis: %w", err)
	}
	span.SetAttributes(attribute.Int("synthesis.passages", len(passages)))

	if len(passages) == 0 {
		return "", false, nil
	}
	if s.llm == nil {
		// Rule-only mode has no way to synthesize prose; surface the top
		// passage verbatim rather than fail the turn.
		return passages[0].Text, true, nil
	}

	var excerpts strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&excerpts, "[%d] %s\n", i+1, p.Text)
	}

	langName := "English"
	if tag == language.Spanish {
		langName = "Spanish"
	}
	system := fmt.Sprintf(synthesisSystemPrompt, langName, vehicleDisplay(partition), excerpts.String())

	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:     s.model,
		System:    []string{system},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: question}},
		MaxTokens: 400,
	})
	if err != nil {
		return "", false, fmt.Errorf("dialogue: answer synthesis: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" || strings.Contains(text, noAnswerSentinel) {
		span.SetAttributes(attribute.Bool("synthesis.no_answer", true))
		return "", false, nil
	}
	return text, true, nil
}

// contextualize rewrites a follow-up ("what about the rear ones?") into a
// standalone question using the recent turns. Any failure falls back to the
// raw text; a worse retrieval query beats a failed turn.
func (s *AnswerSynthesizer) contextualize(ctx context.Context, question string, recentTurns []string) string {
	if s.llm == nil || len(recentTurns) == 0 {
		return question
	}

	prompt := fmt.Sprintf(contextualizePrompt, strings.Join(recentTurns, "\n"), question)
	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:     s.model,
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens: 120,
	})
	if err != nil {
		s.logger.Warn("query contextualization failed, using raw text", "error", err.Error())
		return question
	}
	rewritten := strings.TrimSpace(resp.Text)
	if rewritten == "" {
		return question
	}
	return rewritten
}
