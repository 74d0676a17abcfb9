package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/repository"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

const maxActionNoteLength = 200

// CategoryLookup resolves issue categories (cached in front of the store).
type CategoryLookup interface {
	GetCategory(ctx context.Context, id string) (*domain.IssueCategory, error)
}

// SLALookup resolves SLA rules (cached in front of the store).
type SLALookup interface {
	GetSLA(ctx context.Context, id string) (*domain.SLARule, error)
}

// FeedbackNotifier opens a pending feedback record after a ticket closes.
// Implementations are fire-and-forget.
type FeedbackNotifier interface {
	CreatePendingFeedback(ctx context.Context, ticketID, userID string)
}

// TicketService owns the ticket lifecycle state machine. Every mutating
// operation commits the ticket update and its audit-log appends in one
// transaction; outbound calls happen after commit.
type TicketService struct {
	store      repository.Store
	categories CategoryLookup
	slas       SLALookup
	feedback   FeedbackNotifier
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Categories CategoryLookup
	SLAs       SLALookup
	Feedback   FeedbackNotifier
	Dispatcher events.Dispatcher
}

// TriageAssignInput carries the triage decision that arms SLA monitoring.
type TriageAssignInput struct {
	TicketID   string
	SLAID      string
	Severity   domain.TicketSeverity
	Priority   domain.TicketPriority
	AssignedTo string
	AssignedBy string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		categories: deps.Categories,
		slas:       deps.SLAs,
		feedback:   deps.Feedback,
		dispatcher: deps.Dispatcher,
	}
}

// CreateByCustomer raises a ticket on the customer's own behalf.
func (s *TicketService) CreateByCustomer(ctx context.Context, customerID, categoryID, description string) (*domain.Ticket, error) {
	return s.create(ctx, customerID, customerID, categoryID, description)
}

// CreateByAgent raises a ticket on behalf of a customer.
func (s *TicketService) CreateByAgent(ctx context.Context, agentID, customerID, categoryID, description string) (*domain.Ticket, error) {
	return s.create(ctx, agentID, customerID, categoryID, description)
}

func (s *TicketService) create(ctx context.Context, createdBy, createdFor, categoryID, description string) (*domain.Ticket, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("issue description required", nil)
	}
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		CreatedBy:        createdBy,
		CreatedFor:       createdFor,
		IssueCategoryID:  categoryID,
		IssueDescription: description,
		Status:           domain.TicketStatusNew,
	}
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  createdBy,
		Payload: events.TicketCreatedPayload{
			CreatedBy:       createdBy,
			CreatedFor:      createdFor,
			IssueCategoryID: categoryID,
		},
	})
	return ticket, nil
}

// TriageAssign applies the triage decision: severity, priority and the SLA
// reference (with an hours snapshot), and routes the ticket to an engineer.
// This is the only path that makes a ticket eligible for SLA monitoring.
func (s *TicketService) TriageAssign(ctx context.Context, input TriageAssignInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateTransition("cannot triage a closed ticket",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}
	rule, err := s.slas.GetSLA(ctx, input.SLAID)
	if err != nil {
		return nil, err
	}

	hours := rule.TimeLimitHour
	ticket.Severity = &input.Severity
	ticket.Priority = &input.Priority
	ticket.SLAID = &rule.ID
	ticket.SLATimeLimitHours = &hours
	ticket.AssignedTo = &input.AssignedTo
	ticket.Status = domain.TicketStatusAssigned

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.AssignmentLogs().Create(ctx, &domain.AssignmentLogEntry{
			TicketID:   ticket.ID,
			AssignedTo: input.AssignedTo,
			AssignedBy: input.AssignedBy,
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}
	s.publishAssigned(ctx, ticket.ID, input.AssignedTo, input.AssignedBy)
	return ticket, nil
}

// Assign routes the ticket to an engineer and moves it to ASSIGNED. Valid
// from any non-terminal status; each call appends a new assignment entry.
func (s *TicketService) Assign(ctx context.Context, ticketID, assignedTo, assignedBy string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateTransition("cannot assign a closed ticket",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	ticket.AssignedTo = &assignedTo
	ticket.Status = domain.TicketStatusAssigned

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.AssignmentLogs().Create(ctx, &domain.AssignmentLogEntry{
			TicketID:   ticket.ID,
			AssignedTo: assignedTo,
			AssignedBy: assignedBy,
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}
	s.publishAssigned(ctx, ticket.ID, assignedTo, assignedBy)
	return ticket, nil
}

// Reassign hands the ticket to a new engineer without changing status. Both
// audit trails record the change.
func (s *TicketService) Reassign(ctx context.Context, ticketID, reassignedBy, newAssignee string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateTransition("cannot reassign a closed ticket",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	oldAssignee := "unassigned"
	if ticket.AssignedTo != nil {
		oldAssignee = *ticket.AssignedTo
	}
	ticket.AssignedTo = &newAssignee

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.AssignmentLogs().Create(ctx, &domain.AssignmentLogEntry{
			TicketID:   ticket.ID,
			AssignedTo: newAssignee,
			AssignedBy: reassignedBy,
		}); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &domain.ActionLogEntry{
			TicketID:   ticket.ID,
			UpdatedBy:  reassignedBy,
			Status:     ticket.Status,
			ActionNote: fmt.Sprintf("Ticket reassigned from user %s to user %s", oldAssignee, newAssignee),
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}
	s.publishAssigned(ctx, ticket.ID, newAssignee, reassignedBy)
	return ticket, nil
}

// Open moves an assigned ticket into IN_PROGRESS.
func (s *TicketService) Open(ctx context.Context, ticketID, engineerID string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, engineerID, domain.TicketStatusInProgress,
		"Ticket opened by engineer.", nil, true)
}

// Hold pauses work on a ticket; the note explaining why is mandatory.
func (s *TicketService) Hold(ctx context.Context, ticketID, engineerID, note string) (*domain.Ticket, error) {
	note = strings.TrimSpace(note)
	if err := validateNote(note, true); err != nil {
		return nil, err
	}
	return s.transition(ctx, ticketID, engineerID, domain.TicketStatusOnHold, note, nil, true)
}

// Resolve marks the ticket resolved with a mandatory note and optional
// attachment reference.
func (s *TicketService) Resolve(ctx context.Context, ticketID, engineerID, note string, attachmentURL *string) (*domain.Ticket, error) {
	note = strings.TrimSpace(note)
	if err := validateNote(note, true); err != nil {
		return nil, err
	}
	return s.transition(ctx, ticketID, engineerID, domain.TicketStatusResolved, note, attachmentURL, false)
}

// Close finishes the lifecycle. Only a RESOLVED ticket can be closed; on
// success the feedback collaborator is asked to open a pending feedback
// record for the ticket's subject.
func (s *TicketService) Close(ctx context.Context, ticketID, customerID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidStateTransition("only a resolved ticket can be closed",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &domain.ActionLogEntry{
			TicketID:   ticket.ID,
			UpdatedBy:  customerID,
			Status:     domain.TicketStatusClosed,
			ActionNote: "Ticket closed by customer.",
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}

	s.feedback.CreatePendingFeedback(ctx, ticket.ID, ticket.CreatedFor)
	s.publishStatusChanged(ctx, ticket.ID, customerID, oldStatus, ticket.Status, "")
	return ticket, nil
}

// Reopen re-enters the active pool after a low feedback rating, re-routing to
// the most recent assignee. Called by the feedback collaborator.
func (s *TicketService) Reopen(ctx context.Context, ticketID, customerID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	lastAssignment, err := s.store.AssignmentLogs().LatestByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidStateTransition("cannot reopen ticket: no previous assignment found",
				map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusReopened
	ticket.AssignedTo = &lastAssignment.AssignedTo

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.AssignmentLogs().Create(ctx, &domain.AssignmentLogEntry{
			TicketID:   ticket.ID,
			AssignedTo: lastAssignment.AssignedTo,
			AssignedBy: customerID,
		}); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &domain.ActionLogEntry{
			TicketID:   ticket.ID,
			UpdatedBy:  customerID,
			Status:     domain.TicketStatusReopened,
			ActionNote: "Ticket automatically reopened due to low feedback rating.",
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		ActorID:  customerID,
		Payload: events.TicketReopenedPayload{
			ReassignedTo: lastAssignment.AssignedTo,
			ReopenedBy:   customerID,
		},
	})
	s.publishStatusChanged(ctx, ticket.ID, customerID, oldStatus, ticket.Status, "")
	return ticket, nil
}

// UpdateStatus is the administrative escape hatch. It bypasses the state
// machine preconditions but not the audit trail: the change is recorded like
// every other transition.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, updatedBy string) (*domain.Ticket, error) {
	if !isKnownStatus(status) {
		return nil, apperrors.NewValidationError("unknown ticket status",
			map[string]any{"status": status})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = status

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &domain.ActionLogEntry{
			TicketID:   ticket.ID,
			UpdatedBy:  updatedBy,
			Status:     status,
			ActionNote: "Status updated by administrator.",
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}
	s.publishStatusChanged(ctx, ticket.ID, updatedBy, oldStatus, status, "")
	return ticket, nil
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

// GetTicketsByCustomer lists tickets raised for a customer.
func (s *TicketService) GetTicketsByCustomer(ctx context.Context, customerID string) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().ListByCreatedFor(ctx, customerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicketsByAssignee lists tickets routed to an engineer.
func (s *TicketService) GetTicketsByAssignee(ctx context.Context, engineerID string) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().ListByAssignedTo(ctx, engineerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetNewTickets lists tickets awaiting triage.
func (s *TicketService) GetNewTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().ListByStatus(ctx, []domain.TicketStatus{domain.TicketStatusNew})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAssignmentLog returns the assignment trail for a ticket.
func (s *TicketService) ListAssignmentLog(ctx context.Context, ticketID string) ([]domain.AssignmentLogEntry, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.store.AssignmentLogs().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListActionLog returns the action trail for a ticket.
func (s *TicketService) ListActionLog(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.store.ActionLogs().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// transition applies a status change with its action-log entry. When
// requireAssignee is set the target status demands a non-nil assignee
// (ASSIGNED, IN_PROGRESS, ON_HOLD and REOPENED all imply one).
func (s *TicketService) transition(ctx context.Context, ticketID, actorID string, status domain.TicketStatus, note string, attachmentURL *string, requireAssignee bool) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateTransition("ticket is closed",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}
	if requireAssignee && ticket.AssignedTo == nil {
		return nil, apperrors.NewInvalidStateTransition("ticket has no assignee",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	oldStatus := ticket.Status
	ticket.Status = status

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.ActionLogs().Create(ctx, &domain.ActionLogEntry{
			TicketID:      ticket.ID,
			UpdatedBy:     actorID,
			Status:        status,
			ActionNote:    note,
			AttachmentURL: attachmentURL,
		})
	})
	if err != nil {
		return nil, mapUpdateError(err, ticket.ID)
	}
	s.publishStatusChanged(ctx, ticket.ID, actorID, oldStatus, status, note)
	return ticket, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) publishAssigned(ctx context.Context, ticketID, assignedTo, assignedBy string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		ActorID:  assignedBy,
		Payload: events.TicketAssignedPayload{
			AssignedTo: assignedTo,
			AssignedBy: assignedBy,
		},
	})
}

func (s *TicketService) publishStatusChanged(ctx context.Context, ticketID, actorID string, oldStatus, newStatus domain.TicketStatus, note string) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Note:      note,
		},
	})
}

func validateNote(note string, required bool) error {
	if note == "" {
		if required {
			return apperrors.NewValidationError("action note required", nil)
		}
		return nil
	}
	if len(note) > maxActionNoteLength {
		return apperrors.NewValidationError("action note too long",
			map[string]any{"max_length": maxActionNoteLength})
	}
	return nil
}

func isKnownStatus(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusNew, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusOnHold, domain.TicketStatusReopened, domain.TicketStatusResolved,
		domain.TicketStatusClosed:
		return true
	}
	return false
}

func mapUpdateError(err error, ticketID string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.NewConflict("ticket was modified concurrently",
			map[string]any{"ticket_id": ticketID})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}
