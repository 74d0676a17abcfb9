// Package testutil provides in-memory fakes for exercising services and the
// SLA monitor without postgres.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/domain"
	"github.com/opsdesk/ticket-service/internal/repository"
)

// MemStore is an in-memory repository.Store. Update enforces the same
// version compare-and-swap contract as the postgres implementation.
type MemStore struct {
	mu          sync.Mutex
	tickets     map[string]domain.Ticket
	assignments []domain.AssignmentLogEntry
	actions     []domain.ActionLogEntry
	slas        map[string]domain.SLARule
	categories  map[string]domain.IssueCategory
}

// NewMemStore builds an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		tickets:    make(map[string]domain.Ticket),
		slas:       make(map[string]domain.SLARule),
		categories: make(map[string]domain.IssueCategory),
	}
}

func (s *MemStore) Tickets() repository.TicketRepository               { return (*memTickets)(s) }
func (s *MemStore) AssignmentLogs() repository.AssignmentLogRepository { return (*memAssignments)(s) }
func (s *MemStore) ActionLogs() repository.ActionLogRepository         { return (*memActions)(s) }
func (s *MemStore) SLARules() repository.SLARepository                 { return (*memSLAs)(s) }
func (s *MemStore) Categories() repository.CategoryRepository          { return (*memCategories)(s) }

// WithTx runs fn against the same store. The fakes have no rollback; tests
// assert on validation happening before any write.
func (s *MemStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

// SeedSLA inserts a rule directly.
func (s *MemStore) SeedSLA(rule domain.SLARule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slas[rule.ID] = rule
}

// SeedCategory inserts a category directly.
func (s *MemStore) SeedCategory(category domain.IssueCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
}

// SeedTicket inserts a ticket directly, preserving all fields.
func (s *MemStore) SeedTicket(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket
}

// TicketSnapshot returns the stored ticket by value.
func (s *MemStore) TicketSnapshot(id string) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	return ticket, ok
}

// AssignmentEntries returns the assignment log for a ticket.
func (s *MemStore) AssignmentEntries(ticketID string) []domain.AssignmentLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.AssignmentLogEntry
	for _, entry := range s.assignments {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result
}

// ActionEntries returns the action log for a ticket.
func (s *MemStore) ActionEntries(ticketID string) []domain.ActionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.ActionLogEntry
	for _, entry := range s.actions {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result
}

type memTickets MemStore

func (r *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Version = 0
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *memTickets) ListByStatus(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		for _, status := range statuses {
			if ticket.Status == status {
				result = append(result, ticket)
				break
			}
		}
	}
	return result, nil
}

func (r *memTickets) ListByCreatedFor(ctx context.Context, customerID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.CreatedFor == customerID {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func (r *memTickets) ListByAssignedTo(ctx context.Context, assigneeID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.AssignedTo != nil && *ticket.AssignedTo == assigneeID {
			result = append(result, ticket)
		}
	}
	return result, nil
}

type memAssignments MemStore

func (r *memAssignments) Create(ctx context.Context, entry *domain.AssignmentLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AssignedAt.IsZero() {
		entry.AssignedAt = time.Now()
	}
	r.assignments = append(r.assignments, *entry)
	return nil
}

func (r *memAssignments) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentLogEntry, error) {
	return (*MemStore)(r).AssignmentEntries(ticketID), nil
}

func (r *memAssignments) LatestByTicket(ctx context.Context, ticketID string) (*domain.AssignmentLogEntry, error) {
	entries := (*MemStore)(r).AssignmentEntries(ticketID)
	if len(entries) == 0 {
		return nil, pgx.ErrNoRows
	}
	latest := entries[len(entries)-1]
	return &latest, nil
}

type memActions MemStore

func (r *memActions) Create(ctx context.Context, entry *domain.ActionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ActionTime.IsZero() {
		entry.ActionTime = time.Now()
	}
	r.actions = append(r.actions, *entry)
	return nil
}

func (r *memActions) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error) {
	return (*MemStore)(r).ActionEntries(ticketID), nil
}

type memSLAs MemStore

func (r *memSLAs) Create(ctx context.Context, rule *domain.SLARule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	r.slas[rule.ID] = *rule
	return nil
}

func (r *memSLAs) Update(ctx context.Context, rule *domain.SLARule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slas[rule.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.slas[rule.ID] = *rule
	return nil
}

func (r *memSLAs) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.slas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &rule, nil
}

func (r *memSLAs) List(ctx context.Context) ([]domain.SLARule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.SLARule, 0, len(r.slas))
	for _, rule := range r.slas {
		result = append(result, rule)
	}
	return result, nil
}

func (r *memSLAs) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slas[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.slas, id)
	return nil
}

type memCategories MemStore

func (r *memCategories) Create(ctx context.Context, category *domain.IssueCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	r.categories[category.ID] = *category
	return nil
}

func (r *memCategories) Update(ctx context.Context, category *domain.IssueCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.categories[category.ID] = *category
	return nil
}

func (r *memCategories) GetByID(ctx context.Context, id string) (*domain.IssueCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *memCategories) List(ctx context.Context) ([]domain.IssueCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.IssueCategory, 0, len(r.categories))
	for _, category := range r.categories {
		result = append(result, category)
	}
	return result, nil
}

func (r *memCategories) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.categories, id)
	return nil
}
