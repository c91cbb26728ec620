package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

type shareGrantRepository struct {
	db *sql.DB
}

// NewShareGrantRepository creates a new share grant repository
func NewShareGrantRepository(db *sql.DB) repository.ShareGrantRepository {
	return &shareGrantRepository{db: db}
}

func (r *shareGrantRepository) Create(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error) {
	query := `
		INSERT INTO shared_lists (list_id, shared_by, shared_email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	grant.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		grant.ListID,
		grant.SharedBy,
		grant.SharedEmail,
		grant.CreatedAt,
	).Scan(&grant.ID, &grant.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create share grant: %w", err)
	}

	return grant, nil
}

func (r *shareGrantRepository) GetByList(ctx context.Context, listID string) ([]*models.ShareGrant, error) {
	query := `
		SELECT id, list_id, shared_by, shared_email, created_at
		FROM shared_lists
		WHERE list_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query share grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.ShareGrant
	for rows.Next() {
		grant := &models.ShareGrant{}
		if err := rows.Scan(
			&grant.ID,
			&grant.ListID,
			&grant.SharedBy,
			&grant.SharedEmail,
			&grant.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan share grant: %w", err)
		}
		grants = append(grants, grant)
	}

	return grants, rows.Err()
}
