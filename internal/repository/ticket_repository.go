package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/domain"
)

const ticketColumns = `id, created_by, created_for, issue_category_id, issue_description,
               status, severity, priority, sla_id, sla_time_limit_hours, assigned_to,
               sla_breached, version, created_at, updated_at`

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update performs a compare-and-swap on the ticket's version. It returns
	// ErrVersionConflict when the row changed since the read, and
	// pgx.ErrNoRows when the ticket does not exist. On success the ticket's
	// Version and UpdatedAt are refreshed in place.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByStatus(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	ListByCreatedFor(ctx context.Context, customerID string) ([]domain.Ticket, error)
	ListByAssignedTo(ctx context.Context, assigneeID string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (created_by, created_for, issue_category_id, issue_description, status,
                             severity, priority, sla_id, sla_time_limit_hours, assigned_to, sla_breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, version, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.CreatedBy,
		ticket.CreatedFor,
		ticket.IssueCategoryID,
		ticket.IssueDescription,
		ticket.Status,
		ticket.Severity,
		ticket.Priority,
		ticket.SLAID,
		ticket.SLATimeLimitHours,
		ticket.AssignedTo,
		ticket.SLABreached,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, severity=$2, priority=$3, sla_id=$4, sla_time_limit_hours=$5,
            assigned_to=$6, sla_breached=$7, version=version+1, updated_at=NOW()
        WHERE id=$8 AND version=$9
        RETURNING version, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.Severity,
		ticket.Priority,
		ticket.SLAID,
		ticket.SLATimeLimitHours,
		ticket.AssignedTo,
		ticket.SLABreached,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if err == pgx.ErrNoRows {
		return r.classifyMissingRow(ctx, ticket.ID)
	}
	return err
}

// classifyMissingRow distinguishes a stale version from a missing ticket.
func (r *ticketRepository) classifyMissingRow(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return pgx.ErrNoRows
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	if len(statuses) == 0 {
		return []domain.Ticket{}, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = status
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE status IN (%s) ORDER BY created_at ASC`,
		ticketColumns, strings.Join(placeholders, ","))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByCreatedFor(ctx context.Context, customerID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE created_for=$1 ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByAssignedTo(ctx context.Context, assigneeID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE assigned_to=$1 ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.db.Query(ctx, query, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.CreatedBy,
		&ticket.CreatedFor,
		&ticket.IssueCategoryID,
		&ticket.IssueDescription,
		&ticket.Status,
		&ticket.Severity,
		&ticket.Priority,
		&ticket.SLAID,
		&ticket.SLATimeLimitHours,
		&ticket.AssignedTo,
		&ticket.SLABreached,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
