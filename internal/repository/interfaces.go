package repository

import (
	"context"
	"errors"

	"github.com/andresucko/vistalista/internal/models"
)

// ErrNotFound is returned by writes that target a specific row which does
// not exist. Lookups that return a nil record instead of an error are
// documented as such.
var ErrNotFound = errors.New("not found")

// ItemRepository defines the interface for active-list item operations.
// All reads and writes are scoped by the owning user where applicable; the
// store does not inject the ownership filter on its own.
type ItemRepository interface {
	// GetByUser returns all items owned by userID ordered by their
	// store-assigned position, ascending.
	GetByUser(ctx context.Context, userID string) ([]*models.Item, error)
	// CreateBatch inserts all given items as one statement and returns the
	// created rows, with store-assigned identifiers and positions, in
	// insertion order. On error nothing is inserted.
	CreateBatch(ctx context.Context, items []*models.Item) ([]*models.Item, error)
	SetCompleted(ctx context.Context, itemID string, completed bool) error
	SetPrice(ctx context.Context, itemID string, price float64) error
	Delete(ctx context.Context, itemID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// SavedListRepository defines the interface for saved-list snapshot
// operations.
type SavedListRepository interface {
	Create(ctx context.Context, list *models.SavedList) (*models.SavedList, error)
	// GetByUser returns all saved lists owned by userID, newest first.
	GetByUser(ctx context.Context, userID string) ([]*models.SavedList, error)
	// GetByID returns nil, nil when no list with the given id exists.
	GetByID(ctx context.Context, id string) (*models.SavedList, error)
	// GetByShareToken returns nil, nil when no list carries the token.
	GetByShareToken(ctx context.Context, token string) (*models.SavedList, error)
	// SetShareToken assigns a token to a list that does not have one yet.
	// It returns false with a nil error when the list is missing or already
	// has a token, so callers can re-read and reuse the existing value. A
	// collision with another list's token surfaces as a unique-violation
	// error.
	SetShareToken(ctx context.Context, id, token string) (bool, error)
	CreateItems(ctx context.Context, items []*models.SavedListItem) error
	GetItems(ctx context.Context, listID string) ([]*models.SavedListItem, error)
}

// ShareGrantRepository defines the interface for share grant records.
type ShareGrantRepository interface {
	Create(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error)
	GetByList(ctx context.Context, listID string) ([]*models.ShareGrant, error)
}

// UserRepository defines the interface for account records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail returns nil, nil when no account exists for the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetLanguage(ctx context.Context, id, language string) error
}

// SessionRepository defines the interface for auth sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	// GetByToken returns nil, nil when the token is unknown.
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
