package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold     TicketStatus = "ON_HOLD"
	TicketStatusReopened   TicketStatus = "REOPENED"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ActiveStatuses are the states eligible for SLA evaluation.
var ActiveStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusReopened,
}

// IsActive reports whether the status participates in SLA monitoring.
func (s TicketStatus) IsActive() bool {
	for _, candidate := range ActiveStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed
}

// TicketSeverity enumerates impact levels set at triage.
type TicketSeverity string

const (
	TicketSeverityCritical TicketSeverity = "CRITICAL"
	TicketSeverityHigh     TicketSeverity = "HIGH"
	TicketSeverityMedium   TicketSeverity = "MEDIUM"
	TicketSeverityLow      TicketSeverity = "LOW"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityUrgent TicketPriority = "URGENT"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityLow    TicketPriority = "LOW"
)

// Ticket is the aggregate for support requests.
//
// CreatedBy and CreatedFor are identities issued by the external auth
// collaborator; CreatedFor equals CreatedBy when the customer raised the
// ticket themselves. Severity, Priority and the SLA reference stay nil until
// triage. SLATimeLimitHours is a snapshot of the SLA rule captured at triage,
// so later edits to the rule table never move an existing deadline. Version is
// the optimistic concurrency token: every update is compare-and-swap on it.
type Ticket struct {
	ID                string
	CreatedBy         string
	CreatedFor        string
	IssueCategoryID   string
	IssueDescription  string
	Status            TicketStatus
	Severity          *TicketSeverity
	Priority          *TicketPriority
	SLAID             *string
	SLATimeLimitHours *int
	AssignedTo        *string
	SLABreached       bool
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BreachDeadline returns the SLA resolution deadline, or false when the
// ticket has not been triaged yet.
func (t *Ticket) BreachDeadline() (time.Time, bool) {
	if t.SLATimeLimitHours == nil {
		return time.Time{}, false
	}
	return t.CreatedAt.Add(time.Duration(*t.SLATimeLimitHours) * time.Hour), true
}
