package dto

import (
	"time"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// CreateTicketRequest payload for a customer raising their own ticket.
type CreateTicketRequest struct {
	IssueCategoryID  string `json:"issue_category_id"`
	IssueDescription string `json:"issue_description"`
}

// CreateTicketForRequest payload for an agent raising a ticket on behalf of a
// customer.
type CreateTicketForRequest struct {
	CreatedFor       string `json:"created_for"`
	IssueCategoryID  string `json:"issue_category_id"`
	IssueDescription string `json:"issue_description"`
}

// TriageAssignRequest payload.
type TriageAssignRequest struct {
	SLAID      string                `json:"sla_id"`
	Severity   domain.TicketSeverity `json:"severity"`
	Priority   domain.TicketPriority `json:"priority"`
	AssignedTo string                `json:"assigned_to"`
}

// TriageSuggestRequest payload for the advisory triage proxy.
type TriageSuggestRequest struct {
	IssueCategory    string `json:"issue_category"`
	IssueDescription string `json:"issue_description"`
}

// TriageSuggestionResponse advisory severity and priority.
type TriageSuggestionResponse struct {
	Severity string `json:"severity"`
	Priority string `json:"priority"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	NewAssignee string `json:"new_assignee"`
}

// HoldRequest payload.
type HoldRequest struct {
	Note string `json:"note"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Note          string  `json:"note"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}

// UpdateStatusRequest payload for the administrative status path.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse full ticket view.
type TicketResponse struct {
	ID                string                 `json:"id"`
	CreatedBy         string                 `json:"created_by"`
	CreatedFor        string                 `json:"created_for"`
	IssueCategoryID   string                 `json:"issue_category_id"`
	IssueDescription  string                 `json:"issue_description"`
	Status            domain.TicketStatus    `json:"status"`
	Severity          *domain.TicketSeverity `json:"severity,omitempty"`
	Priority          *domain.TicketPriority `json:"priority,omitempty"`
	SLAID             *string                `json:"sla_id,omitempty"`
	SLATimeLimitHours *int                   `json:"sla_time_limit_hours,omitempty"`
	AssignedTo        *string                `json:"assigned_to,omitempty"`
	SLABreached       bool                   `json:"sla_breached"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// AssignmentLogResponse one assignment trail entry.
type AssignmentLogResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AssignedTo string    `json:"assigned_to"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// ActionLogResponse one action trail entry.
type ActionLogResponse struct {
	ID            string              `json:"id"`
	TicketID      string              `json:"ticket_id"`
	UpdatedBy     string              `json:"updated_by"`
	Status        domain.TicketStatus `json:"status"`
	ActionNote    string              `json:"action_note"`
	AttachmentURL *string             `json:"attachment_url,omitempty"`
	ActionTime    time.Time           `json:"action_time"`
}
