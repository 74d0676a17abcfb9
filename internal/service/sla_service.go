package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/cache"
	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/repository"
	apperrors "github.com/opsdesk/ticket-service/pkg/util"
)

// SLAService manages SLA rule reference data with a redis read-through cache
// in front of the store. Mutations invalidate the cached entry.
type SLAService struct {
	store repository.Store
	cache *cache.ReferenceCache
}

// NewSLAService constructs the service.
func NewSLAService(store repository.Store, refCache *cache.ReferenceCache) *SLAService {
	return &SLAService{store: store, cache: refCache}
}

// CreateSLA validates and persists a new rule.
func (s *SLAService) CreateSLA(ctx context.Context, rule *domain.SLARule) (*domain.SLARule, error) {
	if err := validateSLARule(rule); err != nil {
		return nil, err
	}
	if err := s.store.SLARules().Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// UpdateSLA replaces an existing rule. The hours snapshot on already-triaged
// tickets is unaffected.
func (s *SLAService) UpdateSLA(ctx context.Context, rule *domain.SLARule) (*domain.SLARule, error) {
	if err := validateSLARule(rule); err != nil {
		return nil, err
	}
	if err := s.store.SLARules().Update(ctx, rule); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla rule", map[string]any{"sla_id": rule.ID})
		}
		return nil, apperrors.MapError(err)
	}
	s.cache.InvalidateSLA(ctx, rule.ID)
	return rule, nil
}

// GetSLA resolves a rule, cache first.
func (s *SLAService) GetSLA(ctx context.Context, id string) (*domain.SLARule, error) {
	if rule, ok := s.cache.GetSLA(ctx, id); ok {
		return rule, nil
	}
	rule, err := s.store.SLARules().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla rule", map[string]any{"sla_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	s.cache.SetSLA(ctx, rule)
	return rule, nil
}

// ListSLAs returns all rules.
func (s *SLAService) ListSLAs(ctx context.Context) ([]domain.SLARule, error) {
	rules, err := s.store.SLARules().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// DeleteSLA removes a rule. Tickets already triaged keep their snapshot.
func (s *SLAService) DeleteSLA(ctx context.Context, id string) error {
	if err := s.store.SLARules().Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla rule", map[string]any{"sla_id": id})
		}
		return apperrors.MapError(err)
	}
	s.cache.InvalidateSLA(ctx, id)
	return nil
}

func validateSLARule(rule *domain.SLARule) error {
	if !isKnownSeverity(rule.Severity) {
		return apperrors.NewValidationError("unknown severity", map[string]any{"severity": rule.Severity})
	}
	if !isKnownPriority(rule.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": rule.Priority})
	}
	if rule.TimeLimitHour < domain.SLAMinTimeLimitHours || rule.TimeLimitHour > domain.SLAMaxTimeLimitHours {
		return apperrors.NewValidationError("time limit out of range", map[string]any{
			"min_hours": domain.SLAMinTimeLimitHours,
			"max_hours": domain.SLAMaxTimeLimitHours,
		})
	}
	return nil
}

func isKnownSeverity(severity domain.TicketSeverity) bool {
	switch severity {
	case domain.TicketSeverityCritical, domain.TicketSeverityHigh,
		domain.TicketSeverityMedium, domain.TicketSeverityLow:
		return true
	}
	return false
}

func isKnownPriority(priority domain.TicketPriority) bool {
	switch priority {
	case domain.TicketPriorityUrgent, domain.TicketPriorityHigh,
		domain.TicketPriorityMedium, domain.TicketPriorityLow:
		return true
	}
	return false
}
