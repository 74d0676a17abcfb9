package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-service/internal/api/dto"
	"github.com/opsdesk/ticket-service/internal/auth"
	"github.com/opsdesk/ticket-service/internal/client"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/service"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// TriageSuggester proxies the triage collaborator.
type TriageSuggester interface {
	Suggest(ctx context.Context, issueCategory, issueDescription string) (*client.TriageSuggestion, error)
}

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
	triage  TriageSuggester
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, triage TriageSuggester) *TicketsHandler {
	return &TicketsHandler{service: ticketService, triage: triage}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IssueCategoryID == "" || strings.TrimSpace(req.IssueDescription) == "" {
		return apperrors.NewValidationError("issue_category_id and issue_description required", nil)
	}

	ticket, err := h.service.CreateByCustomer(c.Context(), principal.SubjectID, req.IssueCategoryID, req.IssueDescription)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CreateTicketFor POST /tickets/on-behalf.
func (h *TicketsHandler) CreateTicketFor(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketForRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CreatedFor == "" || req.IssueCategoryID == "" || strings.TrimSpace(req.IssueDescription) == "" {
		return apperrors.NewValidationError("created_for, issue_category_id and issue_description required", nil)
	}

	ticket, err := h.service.CreateByAgent(c.Context(), principal.SubjectID, req.CreatedFor, req.IssueCategoryID, req.IssueDescription)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// TriageAssign POST /tickets/:id/triage.
func (h *TicketsHandler) TriageAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TriageAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SLAID == "" || req.AssignedTo == "" {
		return apperrors.NewValidationError("sla_id and assigned_to required", nil)
	}

	ticket, err := h.service.TriageAssign(c.Context(), service.TriageAssignInput{
		TicketID:   c.Params("id"),
		SLAID:      req.SLAID,
		Severity:   req.Severity,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
		AssignedBy: principal.SubjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// TriageSuggest POST /tickets/triage/suggest.
func (h *TicketsHandler) TriageSuggest(c *fiber.Ctx) error {
	var req dto.TriageSuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IssueCategory == "" || strings.TrimSpace(req.IssueDescription) == "" {
		return apperrors.NewValidationError("issue_category and issue_description required", nil)
	}

	suggestion, err := h.triage.Suggest(c.Context(), req.IssueCategory, req.IssueDescription)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TriageSuggestionResponse{
		Severity: suggestion.Severity,
		Priority: suggestion.Priority,
	}})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssignedTo == "" {
		return apperrors.NewValidationError("assigned_to required", nil)
	}

	ticket, err := h.service.Assign(c.Context(), c.Params("id"), req.AssignedTo, principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ReassignTicket POST /tickets/:id/reassign.
func (h *TicketsHandler) ReassignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.NewAssignee == "" {
		return apperrors.NewValidationError("new_assignee required", nil)
	}

	ticket, err := h.service.Reassign(c.Context(), c.Params("id"), principal.SubjectID, req.NewAssignee)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// OpenTicket POST /tickets/:id/open.
func (h *TicketsHandler) OpenTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Open(c.Context(), c.Params("id"), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// HoldTicket POST /tickets/:id/hold.
func (h *TicketsHandler) HoldTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.HoldRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Hold(c.Context(), c.Params("id"), principal.SubjectID, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ResolveTicket POST /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Resolve(c.Context(), c.Params("id"), principal.SubjectID, req.Note, req.AttachmentURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Close(c.Context(), c.Params("id"), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ReopenTicket POST /tickets/internal/:id/reopen. Called by the feedback
// collaborator when a closed ticket receives a low rating.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Reopen(c.Context(), c.Params("id"), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicketStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateTicketStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.Context(), c.Params("id"), req.Status, principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListMyTickets GET /tickets/mine.
func (h *TicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.GetTicketsByCustomer(c.Context(), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListAssignedTickets GET /tickets/assigned.
func (h *TicketsHandler) ListAssignedTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.GetTicketsByAssignee(c.Context(), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListNewTickets GET /tickets/new.
func (h *TicketsHandler) ListNewTickets(c *fiber.Ctx) error {
	tickets, err := h.service.GetNewTickets(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListAssignmentLog GET /tickets/:id/assignment-log.
func (h *TicketsHandler) ListAssignmentLog(c *fiber.Ctx) error {
	entries, err := h.service.ListAssignmentLog(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, assignmentLogResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListActionLog GET /tickets/:id/action-log.
func (h *TicketsHandler) ListActionLog(c *fiber.Ctx) error {
	entries, err := h.service.ListActionLog(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ActionLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, actionLogResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                ticket.ID,
		CreatedBy:         ticket.CreatedBy,
		CreatedFor:        ticket.CreatedFor,
		IssueCategoryID:   ticket.IssueCategoryID,
		IssueDescription:  ticket.IssueDescription,
		Status:            ticket.Status,
		Severity:          ticket.Severity,
		Priority:          ticket.Priority,
		SLAID:             ticket.SLAID,
		SLATimeLimitHours: ticket.SLATimeLimitHours,
		AssignedTo:        ticket.AssignedTo,
		SLABreached:       ticket.SLABreached,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func assignmentLogResponse(entry *domain.AssignmentLogEntry) dto.AssignmentLogResponse {
	return dto.AssignmentLogResponse{
		ID:         entry.ID,
		TicketID:   entry.TicketID,
		AssignedTo: entry.AssignedTo,
		AssignedBy: entry.AssignedBy,
		AssignedAt: entry.AssignedAt,
	}
}

func actionLogResponse(entry *domain.ActionLogEntry) dto.ActionLogResponse {
	return dto.ActionLogResponse{
		ID:            entry.ID,
		TicketID:      entry.TicketID,
		UpdatedBy:     entry.UpdatedBy,
		Status:        entry.Status,
		ActionNote:    entry.ActionNote,
		AttachmentURL: entry.AttachmentURL,
		ActionTime:    entry.ActionTime,
	}
}
