package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opsdesk/ticket-service/internal/cache"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/repository"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

const (
	minCategoryNameLength = 2
	maxCategoryNameLength = 50

	pgUniqueViolation = "23505"
)

// CategoryService manages issue category reference data. Name uniqueness is
// enforced by the unique index; the service maps the violation to a conflict.
type CategoryService struct {
	store repository.Store
	cache *cache.ReferenceCache
}

// NewCategoryService constructs the service.
func NewCategoryService(store repository.Store, refCache *cache.ReferenceCache) *CategoryService {
	return &CategoryService{store: store, cache: refCache}
}

// CreateCategory validates and persists a new category.
func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*domain.IssueCategory, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	category := &domain.IssueCategory{CategoryName: name}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		return nil, mapCategoryError(err, name)
	}
	return category, nil
}

// UpdateCategory renames an existing category.
func (s *CategoryService) UpdateCategory(ctx context.Context, id, name string) (*domain.IssueCategory, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	category := &domain.IssueCategory{ID: id, CategoryName: name}
	if err := s.store.Categories().Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue category", map[string]any{"category_id": id})
		}
		return nil, mapCategoryError(err, name)
	}
	s.cache.InvalidateCategory(ctx, id)
	return category, nil
}

// GetCategory resolves a category, cache first.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.IssueCategory, error) {
	if category, ok := s.cache.GetCategory(ctx, id); ok {
		return category, nil
	}
	category, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	s.cache.SetCategory(ctx, category)
	return category, nil
}

// ListCategories returns all categories.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.IssueCategory, error) {
	categories, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// DeleteCategory removes a category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("issue category", map[string]any{"category_id": id})
		}
		return apperrors.MapError(err)
	}
	s.cache.InvalidateCategory(ctx, id)
	return nil
}

func validateCategoryName(name string) error {
	length := utf8.RuneCountInString(name)
	if length < minCategoryNameLength || length > maxCategoryNameLength {
		return apperrors.NewValidationError("category name length out of range", map[string]any{
			"min_length": minCategoryNameLength,
			"max_length": maxCategoryNameLength,
		})
	}
	return nil
}

func mapCategoryError(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.NewConflict("category name already exists",
			map[string]any{"category_name": name})
	}
	return apperrors.MapError(err)
}
