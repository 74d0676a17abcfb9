package repository

import (
	"context"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// ActionLogRepository stores the append-only action trail.
type ActionLogRepository interface {
	Create(ctx context.Context, entry *domain.ActionLogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error)
}

type actionLogRepository struct {
	db DBTX
}

// NewActionLogRepository builds repository.
func NewActionLogRepository(db DBTX) ActionLogRepository {
	return &actionLogRepository{db: db}
}

func (r *actionLogRepository) Create(ctx context.Context, entry *domain.ActionLogEntry) error {
	const query = `
        INSERT INTO ticket_action_logs (ticket_id, updated_by, status, action_note, attachment_url)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, action_time`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.UpdatedBy,
		entry.Status,
		entry.ActionNote,
		entry.AttachmentURL,
	).Scan(&entry.ID, &entry.ActionTime)
}

func (r *actionLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error) {
	const query = `
        SELECT id, ticket_id, updated_by, status, action_note, attachment_url, action_time
        FROM ticket_action_logs WHERE ticket_id=$1 ORDER BY action_time ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActionLogEntry
	for rows.Next() {
		var entry domain.ActionLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UpdatedBy,
			&entry.Status,
			&entry.ActionNote,
			&entry.AttachmentURL,
			&entry.ActionTime,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
