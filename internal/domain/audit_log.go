package domain

import "time"

// AssignmentLogEntry is an immutable record of a ticket assignment. Entries
// are append-only; the current assignee is the assignee of the most recent
// entry for a ticket.
type AssignmentLogEntry struct {
	ID         string
	TicketID   string
	AssignedTo string
	AssignedBy string
	AssignedAt time.Time
}

// ActionLogEntry is an immutable record of a lifecycle action. Status holds
// the ticket status at the moment the action was taken.
type ActionLogEntry struct {
	ID            string
	TicketID      string
	UpdatedBy     string
	Status        TicketStatus
	ActionNote    string
	AttachmentURL *string
	ActionTime    time.Time
}
