package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/internal/customers"
	"github.com/jmoran41/dealership-ai-assistant/internal/messaging"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// AdvisorService delivers booking requests and escalations to the service
// advisor. Alerts go over the messaging channel when one is configured, over
// email when that is configured, and always to a structured log so nothing is
// lost when both are down.
type AdvisorService struct {
	email        EmailSender
	advisorEmail string
	advisorName  string
	sender       messaging.Sender
	channelID    string
	logger       *logging.Logger
}

// AdvisorConfig wires the delivery paths for advisor alerts. Every field is
// optional; unset paths are skipped.
type AdvisorConfig struct {
	Email        EmailSender
	AdvisorEmail string
	AdvisorName  string
	Sender       messaging.Sender
	ChannelID    string
	Logger       *logging.Logger
}

// NewAdvisorService creates the advisor notification service.
func NewAdvisorService(cfg AdvisorConfig) *AdvisorService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	name := cfg.AdvisorName
	if name == "" {
		name = "Service Advisor"
	}
	return &AdvisorService{
		email:        cfg.Email,
		advisorEmail: cfg.AdvisorEmail,
		advisorName:  name,
		sender:       cfg.Sender,
		channelID:    cfg.ChannelID,
		logger:       logger,
	}
}

// BookingRequested alerts the advisor to a newly submitted appointment
// request, including returning-customer history when available.
func (s *AdvisorService) BookingRequested(ctx context.Context, appt booking.Appointment) error {
	body := RenderBookingAlert(appt)

	s.logger.Info("advisor alert: booking requested",
		"appointment_id", appt.ID,
		"phone", appt.Phone,
		"returning", appt.Returning,
	)

	subject := fmt.Sprintf("New appointment request: %s (%s)", appt.Name, appt.Service)
	return s.deliver(ctx, subject, body)
}

// Escalation alerts the advisor that a conversation needs a human right now.
// The recent turns go into the alert so the advisor can pick up the thread
// without asking the customer to repeat themselves.
func (s *AdvisorService) Escalation(ctx context.Context, userID, message string, recentTurns []string, reason string) error {
	s.logger.Warn("advisor alert: escalation",
		"user_id", userID,
		"reason", reason,
	)

	body := RenderEscalationAlert(userID, message, recentTurns, reason)
	subject := fmt.Sprintf("Escalation (%s): customer %s", reason, userID)
	return s.deliver(ctx, subject, body)
}

// deliver fans the alert out to every configured path and returns the first
// failure. A channel failure does not stop the email attempt.
func (s *AdvisorService) deliver(ctx context.Context, subject, body string) error {
	var firstErr error

	if s.sender != nil && s.channelID != "" {
		out := messaging.Outbound{
			UserID: s.channelID,
			Text:   subject + "\n\n" + body,
		}
		if err := s.sender.Send(ctx, out); err != nil {
			firstErr = fmt.Errorf("notify: advisor channel delivery: %w", err)
		}
	}

	if s.email != nil && s.advisorEmail != "" {
		msg := EmailMessage{
			To:      s.advisorEmail,
			ToName:  s.advisorName,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify: advisor email delivery: %w", err)
		}
	}

	return firstErr
}

// RenderBookingAlert formats the advisor-facing summary of an appointment
// request.
func RenderBookingAlert(appt booking.Appointment) string {
	var b strings.Builder
	b.WriteString("NEW APPOINTMENT REQUEST\n\n")
	fmt.Fprintf(&b, "Name: %s\n", appt.Name)
	fmt.Fprintf(&b, "Phone: %s\n", customers.FormatPhone(appt.Phone))
	fmt.Fprintf(&b, "Vehicle: %s\n", appt.Vehicle)
	fmt.Fprintf(&b, "Service: %s\n", appt.Service)
	fmt.Fprintf(&b, "Preferred: %s, %s\n", appt.Date, appt.Time)
	b.WriteString("\n")
	if appt.Returning {
		fmt.Fprintf(&b, "Returning customer: %d prior visit(s)", appt.VisitCount)
		if appt.LastService != "" {
			fmt.Fprintf(&b, ", last service: %s", appt.LastService)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("New customer: no prior service history on file.\n")
	}
	fmt.Fprintf(&b, "Request ID: %s\n", appt.ID)
	return b.String()
}

// RenderEscalationAlert formats the advisor-facing escalation notice with the
// recent conversation for context.
func RenderEscalationAlert(userID, message string, recentTurns []string, reason string) string {
	var b strings.Builder
	b.WriteString("A customer conversation needs immediate attention.\n\n")
	fmt.Fprintf(&b, "User: %s\n", userID)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	fmt.Fprintf(&b, "Triggering message: %s\n", message)
	if len(recentTurns) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range recentTurns {
			fmt.Fprintf(&b, "  %s\n", turn)
		}
	}
	return b.String()
}
