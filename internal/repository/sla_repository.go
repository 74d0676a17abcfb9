package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// SLARepository manages SLA rule reference data.
type SLARepository interface {
	Create(ctx context.Context, rule *domain.SLARule) error
	Update(ctx context.Context, rule *domain.SLARule) error
	GetByID(ctx context.Context, id string) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
	Delete(ctx context.Context, id string) error
}

type slaRepository struct {
	db DBTX
}

// NewSLARepository builds repository.
func NewSLARepository(db DBTX) SLARepository {
	return &slaRepository{db: db}
}

func (r *slaRepository) Create(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (severity, priority, time_limit_hour)
        VALUES ($1,$2,$3)
        RETURNING id`
	return r.db.QueryRow(ctx, query, rule.Severity, rule.Priority, rule.TimeLimitHour).Scan(&rule.ID)
}

func (r *slaRepository) Update(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        UPDATE sla_rules SET severity=$1, priority=$2, time_limit_hour=$3 WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, rule.Severity, rule.Priority, rule.TimeLimitHour, rule.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	const query = `SELECT id, severity, priority, time_limit_hour FROM sla_rules WHERE id=$1`
	var rule domain.SLARule
	if err := r.db.QueryRow(ctx, query, id).Scan(&rule.ID, &rule.Severity, &rule.Priority, &rule.TimeLimitHour); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	const query = `SELECT id, severity, priority, time_limit_hour FROM sla_rules ORDER BY severity, priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		var rule domain.SLARule
		if err := rows.Scan(&rule.ID, &rule.Severity, &rule.Priority, &rule.TimeLimitHour); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *slaRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM sla_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
