package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

type savedListRepository struct {
	db *sql.DB
}

// NewSavedListRepository creates a new saved list repository
func NewSavedListRepository(db *sql.DB) repository.SavedListRepository {
	return &savedListRepository{db: db}
}

func (r *savedListRepository) Create(ctx context.Context, list *models.SavedList) (*models.SavedList, error) {
	query := `
		INSERT INTO saved_lists (user_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	list.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		list.UserID,
		list.Name,
		list.CreatedAt,
	).Scan(&list.ID, &list.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create saved list: %w", err)
	}

	return list, nil
}

func (r *savedListRepository) GetByUser(ctx context.Context, userID string) ([]*models.SavedList, error) {
	query := `
		SELECT id, user_id, name, share_token, created_at
		FROM saved_lists
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.SavedList
	for rows.Next() {
		list := &models.SavedList{}
		if err := rows.Scan(
			&list.ID,
			&list.UserID,
			&list.Name,
			&list.ShareToken,
			&list.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan saved list: %w", err)
		}
		lists = append(lists, list)
	}

	return lists, rows.Err()
}

func (r *savedListRepository) GetByID(ctx context.Context, id string) (*models.SavedList, error) {
	query := `
		SELECT id, user_id, name, share_token, created_at
		FROM saved_lists
		WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *savedListRepository) GetByShareToken(ctx context.Context, token string) (*models.SavedList, error) {
	query := `
		SELECT id, user_id, name, share_token, created_at
		FROM saved_lists
		WHERE share_token = $1`

	return r.getOne(ctx, query, token)
}

func (r *savedListRepository) getOne(ctx context.Context, query string, arg any) (*models.SavedList, error) {
	list := &models.SavedList{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&list.ID,
		&list.UserID,
		&list.Name,
		&list.ShareToken,
		&list.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get saved list: %w", err)
	}

	return list, nil
}

func (r *savedListRepository) SetShareToken(ctx context.Context, id, token string) (bool, error) {
	// The NULL guard makes concurrent minting converge on one token: only
	// the first writer succeeds, everyone else re-reads.
	query := `UPDATE saved_lists SET share_token = $2 WHERE id = $1 AND share_token IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return false, fmt.Errorf("failed to set share token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *savedListRepository) CreateItems(ctx context.Context, items []*models.SavedListItem) error {
	if len(items) == 0 {
		return nil
	}

	var (
		placeholders []string
		args         []any
	)
	for i, item := range items {
		base := i * 4
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4))
		args = append(args, item.ListID, item.Name, item.Price, item.Completed)
	}

	query := fmt.Sprintf(`
		INSERT INTO saved_list_items (list_id, name, price, completed)
		VALUES %s`,
		strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert saved list items: %w", err)
	}

	return nil
}

func (r *savedListRepository) GetItems(ctx context.Context, listID string) ([]*models.SavedListItem, error) {
	query := `
		SELECT id, list_id, name, price, completed
		FROM saved_list_items
		WHERE list_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved list items: %w", err)
	}
	defer rows.Close()

	var items []*models.SavedListItem
	for rows.Next() {
		item := &models.SavedListItem{}
		if err := rows.Scan(
			&item.ID,
			&item.ListID,
			&item.Name,
			&item.Price,
			&item.Completed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan saved list item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
