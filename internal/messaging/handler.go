package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// Handler wires inbound channel webhooks to the dialogue core.
type Handler struct {
	orchestrator Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a messaging handler.
func NewHandler(orchestrator Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Routes mounts the messaging endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/messages/inbound", h.Inbound)
}

// Inbound handles POST /messages/inbound: one customer message in, one
// assistant reply out.
func (h *Handler) Inbound(w http.ResponseWriter, r *http.Request) {
	var in Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("failed to decode inbound message", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	out, err := h.orchestrator.HandleMessage(r.Context(), in)
	if err != nil {
		// The orchestrator degrades internally; an error here means the
		// request itself was unusable.
		h.logger.Error("failed to handle message", "user_id", in.UserID, "error", err)
		http.Error(w, "Failed to process message", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

// LogSender is a Sender for development and tests: replies are logged, not
// delivered anywhere.
type LogSender struct {
	logger *logging.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the outbound message.
func (s *LogSender) Send(ctx context.Context, out Outbound) error {
	s.logger.Info("outbound message",
		"user_id", out.UserID,
		"intent", out.Intent,
		"escalated", out.Escalated,
		"text", out.Text,
	)
	return nil
}
