package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-service/internal/domain"
)

// CategoryRepository manages issue category reference data.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.IssueCategory) error
	Update(ctx context.Context, category *domain.IssueCategory) error
	GetByID(ctx context.Context, id string) (*domain.IssueCategory, error)
	List(ctx context.Context) ([]domain.IssueCategory, error)
	Delete(ctx context.Context, id string) error
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository builds repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.IssueCategory) error {
	const query = `INSERT INTO issue_categories (category_name) VALUES ($1) RETURNING id`
	return r.db.QueryRow(ctx, query, category.CategoryName).Scan(&category.ID)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.IssueCategory) error {
	cmd, err := r.db.Exec(ctx, `UPDATE issue_categories SET category_name=$1 WHERE id=$2`,
		category.CategoryName, category.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.IssueCategory, error) {
	var category domain.IssueCategory
	err := r.db.QueryRow(ctx, `SELECT id, category_name FROM issue_categories WHERE id=$1`, id).
		Scan(&category.ID, &category.CategoryName)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.IssueCategory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, category_name FROM issue_categories ORDER BY category_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueCategory
	for rows.Next() {
		var category domain.IssueCategory
		if err := rows.Scan(&category.ID, &category.CategoryName); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM issue_categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
