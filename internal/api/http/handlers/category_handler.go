package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-service/internal/api/dto"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/service"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// CategoryHandler exposes the administrative issue category CRUD surface.
type CategoryHandler struct {
	service *service.CategoryService
}

// NewCategoryHandler constructs handler.
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: categoryService}
}

// CreateCategory POST /categories.
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.CreateCategory(c.Context(), req.CategoryName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// UpdateCategory PUT /categories/:id.
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.UpdateCategory(c.Context(), c.Params("id"), req.CategoryName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// GetCategory GET /categories/:id.
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	category, err := h.service.GetCategory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListCategories GET /categories.
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteCategory DELETE /categories/:id.
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	if err := h.service.DeleteCategory(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func categoryResponse(category *domain.IssueCategory) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:           category.ID,
		CategoryName: category.CategoryName,
	}
}
