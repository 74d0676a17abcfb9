package repository

import (
	"context"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// AssignmentLogRepository stores the append-only assignment trail.
type AssignmentLogRepository interface {
	Create(ctx context.Context, entry *domain.AssignmentLogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentLogEntry, error)
	// LatestByTicket returns the most recent entry, or pgx.ErrNoRows when the
	// ticket has never been assigned.
	LatestByTicket(ctx context.Context, ticketID string) (*domain.AssignmentLogEntry, error)
}

type assignmentLogRepository struct {
	db DBTX
}

// NewAssignmentLogRepository builds repository.
func NewAssignmentLogRepository(db DBTX) AssignmentLogRepository {
	return &assignmentLogRepository{db: db}
}

func (r *assignmentLogRepository) Create(ctx context.Context, entry *domain.AssignmentLogEntry) error {
	const query = `
        INSERT INTO assignment_logs (ticket_id, assigned_to, assigned_by)
        VALUES ($1,$2,$3)
        RETURNING id, assigned_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.AssignedTo,
		entry.AssignedBy,
	).Scan(&entry.ID, &entry.AssignedAt)
}

func (r *assignmentLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentLogEntry, error) {
	const query = `
        SELECT id, ticket_id, assigned_to, assigned_by, assigned_at
        FROM assignment_logs WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentLogEntry
	for rows.Next() {
		var entry domain.AssignmentLogEntry
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.AssignedTo, &entry.AssignedBy, &entry.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *assignmentLogRepository) LatestByTicket(ctx context.Context, ticketID string) (*domain.AssignmentLogEntry, error) {
	const query = `
        SELECT id, ticket_id, assigned_to, assigned_by, assigned_at
        FROM assignment_logs WHERE ticket_id=$1 ORDER BY assigned_at DESC LIMIT 1`
	var entry domain.AssignmentLogEntry
	err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&entry.ID, &entry.TicketID, &entry.AssignedTo, &entry.AssignedBy, &entry.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
