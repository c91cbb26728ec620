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

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new active-list item repository
func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetByUser(ctx context.Context, userID string) ([]*models.Item, error) {
	query := `
		SELECT id, user_id, name, price, completed, position, created_at
		FROM user_items
		WHERE user_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item := &models.Item{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Name,
			&item.Price,
			&item.Completed,
			&item.Position,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *itemRepository) CreateBatch(ctx context.Context, items []*models.Item) ([]*models.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// One multi-row INSERT so the batch either lands completely or not at
	// all. RETURNING yields the rows in insertion order.
	var (
		placeholders []string
		args         []any
	)
	now := time.Now()
	for i, item := range items {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, item.UserID, item.Name, item.Price, item.Completed, now)
	}

	query := fmt.Sprintf(`
		INSERT INTO user_items (user_id, name, price, completed, created_at)
		VALUES %s
		RETURNING id, user_id, name, price, completed, position, created_at`,
		strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert items: %w", err)
	}
	defer rows.Close()

	var created []*models.Item
	for rows.Next() {
		item := &models.Item{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Name,
			&item.Price,
			&item.Completed,
			&item.Position,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inserted item: %w", err)
		}
		created = append(created, item)
	}

	return created, rows.Err()
}

func (r *itemRepository) SetCompleted(ctx context.Context, itemID string, completed bool) error {
	query := `UPDATE user_items SET completed = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, itemID, completed)
	if err != nil {
		return fmt.Errorf("failed to update item completed flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
	}

	return nil
}

func (r *itemRepository) SetPrice(ctx context.Context, itemID string, price float64) error {
	query := `UPDATE user_items SET price = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, itemID, price)
	if err != nil {
		return fmt.Errorf("failed to update item price: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
	}

	return nil
}

func (r *itemRepository) Delete(ctx context.Context, itemID string) error {
	query := `DELETE FROM user_items WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
	}

	return nil
}

func (r *itemRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM user_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete items for user: %w", err)
	}

	return nil
}
