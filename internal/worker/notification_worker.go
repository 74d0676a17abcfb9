package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/observability"
)

const (
	slaMonitorSender = "System-SLA-Monitor"
	systemSender     = "System"
)

// NotificationSender delivers a notification to a recipient.
type NotificationSender interface {
	Send(ctx context.Context, recipientID, sender, subject, body string) error
}

// NotificationWorker consumes domain events and turns them into outbound
// notifications. Delivery is best-effort: a failed send is logged and counted,
// never retried or propagated back to the producing operation.
type NotificationWorker struct {
	sender  NotificationSender
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(sender NotificationSender, metrics *observability.Metrics, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{sender: sender, metrics: metrics, logger: logger}
}

// RegisterHandlers subscribes the worker to the events it notifies on.
func (w *NotificationWorker) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventSLAWarning, w.handleSLAWarning)
	dispatcher.Subscribe(events.EventSLABreached, w.handleSLABreached)
	dispatcher.Subscribe(events.EventTicketAssigned, w.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketReopened, w.handleTicketReopened)
}

func (w *NotificationWorker) handleSLAWarning(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAWarningPayload)
	if !ok {
		w.logger.Warn("unexpected payload for sla warning", zap.String("event_id", event.ID))
		return nil
	}

	var body string
	switch payload.Tier {
	case "5m":
		body = fmt.Sprintf("Urgent: 5 minutes remaining for SLA on ticket %s", event.TicketID)
	case "10m":
		body = fmt.Sprintf("Warning: 10 minutes remaining for SLA on ticket %s", event.TicketID)
	default:
		body = fmt.Sprintf("Warning: 15 minutes remaining for SLA on ticket %s", event.TicketID)
	}

	subject := fmt.Sprintf("SLA Alert for Ticket: %s", event.TicketID)
	w.send(ctx, payload.AssignedTo, slaMonitorSender, subject, body)
	return nil
}

func (w *NotificationWorker) handleSLABreached(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreachedPayload)
	if !ok {
		w.logger.Warn("unexpected payload for sla breach", zap.String("event_id", event.ID))
		return nil
	}

	subject := fmt.Sprintf("SLA Alert for Ticket: %s", event.TicketID)
	body := fmt.Sprintf("SLA HAS BEEN BREACHED for ticket %s", event.TicketID)
	w.send(ctx, payload.AssignedTo, slaMonitorSender, subject, body)
	return nil
}

func (w *NotificationWorker) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		w.logger.Warn("unexpected payload for ticket assignment", zap.String("event_id", event.ID))
		return nil
	}

	subject := fmt.Sprintf("Ticket Assigned: %s", event.TicketID)
	body := fmt.Sprintf("You have been assigned ticket %s.", event.TicketID)
	w.send(ctx, payload.AssignedTo, systemSender, subject, body)
	return nil
}

func (w *NotificationWorker) handleTicketReopened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReopenedPayload)
	if !ok {
		w.logger.Warn("unexpected payload for ticket reopen", zap.String("event_id", event.ID))
		return nil
	}

	subject := fmt.Sprintf("Ticket Reopened: %s", event.TicketID)
	body := fmt.Sprintf("Ticket %s has been reopened and reassigned to you.", event.TicketID)
	w.send(ctx, payload.ReassignedTo, systemSender, subject, body)
	return nil
}

func (w *NotificationWorker) send(ctx context.Context, recipientID, sender, subject, body string) {
	if w.sender == nil {
		return
	}
	if err := w.sender.Send(ctx, recipientID, sender, subject, body); err != nil {
		w.metrics.RecordNotification("failure")
		w.logger.Warn("notification send failed",
			zap.String("recipient_id", recipientID),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	w.metrics.RecordNotification("success")
}
