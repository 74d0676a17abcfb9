package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-service/internal/api/dto"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/service"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// SLAHandler exposes the administrative SLA rule CRUD surface.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// CreateSLA POST /slas.
func (h *SLAHandler) CreateSLA(c *fiber.Ctx) error {
	var req dto.SLARequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.CreateSLA(c.Context(), &domain.SLARule{
		Severity:      req.Severity,
		Priority:      req.Priority,
		TimeLimitHour: req.TimeLimitHour,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": slaResponse(rule)})
}

// UpdateSLA PUT /slas/:id.
func (h *SLAHandler) UpdateSLA(c *fiber.Ctx) error {
	var req dto.SLARequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.UpdateSLA(c.Context(), &domain.SLARule{
		ID:            c.Params("id"),
		Severity:      req.Severity,
		Priority:      req.Priority,
		TimeLimitHour: req.TimeLimitHour,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(rule)})
}

// GetSLA GET /slas/:id.
func (h *SLAHandler) GetSLA(c *fiber.Ctx) error {
	rule, err := h.service.GetSLA(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(rule)})
}

// ListSLAs GET /slas.
func (h *SLAHandler) ListSLAs(c *fiber.Ctx) error {
	rules, err := h.service.ListSLAs(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SLAResponse, 0, len(rules))
	for i := range rules {
		items = append(items, slaResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteSLA DELETE /slas/:id.
func (h *SLAHandler) DeleteSLA(c *fiber.Ctx) error {
	if err := h.service.DeleteSLA(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func slaResponse(rule *domain.SLARule) dto.SLAResponse {
	return dto.SLAResponse{
		ID:            rule.ID,
		Severity:      rule.Severity,
		Priority:      rule.Priority,
		TimeLimitHour: rule.TimeLimitHour,
	}
}
