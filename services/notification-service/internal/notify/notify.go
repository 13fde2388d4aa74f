// Package notify turns domain events into emails for the pharmacy
// counter inbox.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/farmaciavalero/farmaline/services/notification-service/internal/email"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/storage"
)

const (
	TopicAppointmentConfirmed = "booking.appointment.confirmed.v1"
	TopicOrderPlaced          = "orders.order.placed.v1"
	TopicFormulationRequested = "formulations.request.created.v1"
)

type Notifier struct {
	sender     email.Sender
	repo       *storage.NotificationsRepository
	logger     *slog.Logger
	recipients []string
}

func New(sender email.Sender, repo *storage.NotificationsRepository, logger *slog.Logger, recipients []string) *Notifier {
	return &Notifier{sender: sender, repo: repo, logger: logger, recipients: recipients}
}

// Handle routes one consumed event to the matching email template.
// Unknown topics are logged and dropped; they are not an error worth
// re-reading the partition for.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var payload map[string]any
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		n.logger.Error("invalid event payload", "topic", msg.Topic, "err", err)
		return nil
	}

	var subject, body, aggregateID string
	switch msg.Topic {
	case TopicAppointmentConfirmed:
		subject, body = appointmentEmail(payload)
		aggregateID = str(payload, "appointment_id")
	case TopicOrderPlaced:
		subject, body = orderEmail(payload)
		aggregateID = str(payload, "order_id")
	case TopicFormulationRequested:
		subject, body = formulationEmail(payload)
		aggregateID = str(payload, "formulation_id")
	default:
		n.logger.Warn("no template for topic", "topic", msg.Topic)
		return nil
	}

	status := storage.StatusSent
	if err := n.sender.Send(n.recipients, subject, body); err != nil {
		n.logger.Error("email send failed", "topic", msg.Topic, "err", err)
		status = storage.StatusFailed
	}

	return n.repo.Insert(ctx, storage.Notification{
		AggregateID: aggregateID,
		EventType:   msg.Topic,
		Recipient:   strings.Join(n.recipients, ", "),
		Subject:     subject,
		Payload:     payload,
		Status:      status,
	})
}

func appointmentEmail(p map[string]any) (string, string) {
	subject := fmt.Sprintf("Nueva cita: %s %s", str(p, "date"), str(p, "slot"))
	body := fmt.Sprintf(
		"Cita confirmada.\n\nPaciente: %s\nTeléfono: %s\nServicio: %s\nFecha: %s\nHora: %s\n",
		str(p, "patient_name"), str(p, "patient_phone"), str(p, "service"),
		str(p, "date"), str(p, "slot"),
	)
	return subject, body
}

func orderEmail(p map[string]any) (string, string) {
	items := strList(p, "items")
	subject := fmt.Sprintf("Nuevo pedido (%d artículos)", len(items))
	var b strings.Builder
	b.WriteString("Pedido recibido.\n\nArtículos:\n")
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
	if pm := str(p, "payment_method"); pm != "" {
		b.WriteString("\nPago: " + pm + "\n")
	}
	return subject, b.String()
}

func formulationEmail(p map[string]any) (string, string) {
	subject := fmt.Sprintf("Fórmula magistral: %s", str(p, "patient_name"))
	body := fmt.Sprintf(
		"Solicitud de fórmula magistral.\n\nPaciente: %s\nMédico: %s\nReferencia: %s\n",
		str(p, "patient_name"), str(p, "doctor_name"), str(p, "formulation_id"),
	)
	return subject, body
}

func str(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func strList(p map[string]any, key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
