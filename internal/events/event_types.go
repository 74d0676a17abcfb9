package events

import (
	"time"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReopened      EventType = "ticket_reopened"
	EventSLAWarning          EventType = "sla_warning"
	EventSLABreached         EventType = "sla_breached"
)

// Event represents a domain event emitted by services and the monitor.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatedBy       string `json:"created_by"`
	CreatedFor      string `json:"created_for"`
	IssueCategoryID string `json:"issue_category_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	ReassignedTo string `json:"reassigned_to"`
	ReopenedBy   string `json:"reopened_by"`
}

// SLAWarningPayload payload for tiered pre-breach warnings.
type SLAWarningPayload struct {
	AssignedTo       string    `json:"assigned_to"`
	MinutesRemaining int64     `json:"minutes_remaining"`
	Tier             string    `json:"tier"`
	BreachTime       time.Time `json:"breach_time"`
}

// SLABreachedPayload payload for the one-time breach transition.
type SLABreachedPayload struct {
	AssignedTo string    `json:"assigned_to"`
	BreachTime time.Time `json:"breach_time"`
}
