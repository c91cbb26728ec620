package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/andresucko/vistalista/internal/models"
)

// SavedListStore is an in-memory SavedListRepository. It enforces share
// token uniqueness the way the real store does: a colliding token fails with
// a unique-violation error.
type SavedListStore struct {
	mu     sync.Mutex
	nextID int
	lists  []*models.SavedList
	items  map[string][]*models.SavedListItem

	CreateErr      error
	GetErr         error
	SetTokenErr    error
	CreateItemsErr error
	GetItemsErr    error

	// TokenCollisions makes that many SetShareToken calls fail with a
	// unique violation before one succeeds.
	TokenCollisions int
}

// NewSavedListStore creates an empty in-memory saved list store.
func NewSavedListStore() *SavedListStore {
	return &SavedListStore{items: make(map[string][]*models.SavedListItem)}
}

func (s *SavedListStore) Create(ctx context.Context, list *models.SavedList) (*models.SavedList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.nextID++
	cp := *list
	cp.ID = fmt.Sprintf("list-%d", s.nextID)
	cp.CreatedAt = time.Now().Add(time.Duration(s.nextID) * time.Millisecond)
	s.lists = append(s.lists, &cp)
	out := cp
	return &out, nil
}

func (s *SavedListStore) GetByUser(ctx context.Context, userID string) ([]*models.SavedList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}

	// Newest first.
	var out []*models.SavedList
	for i := len(s.lists) - 1; i >= 0; i-- {
		if s.lists[i].UserID == userID {
			cp := *s.lists[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *SavedListStore) GetByID(ctx context.Context, id string) (*models.SavedList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.find(func(l *models.SavedList) bool { return l.ID == id }), nil
}

func (s *SavedListStore) GetByShareToken(ctx context.Context, token string) (*models.SavedList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.find(func(l *models.SavedList) bool {
		return l.ShareToken != nil && *l.ShareToken == token
	}), nil
}

func (s *SavedListStore) find(match func(*models.SavedList) bool) *models.SavedList {
	for _, l := range s.lists {
		if match(l) {
			cp := *l
			return &cp
		}
	}
	return nil
}

func (s *SavedListStore) SetShareToken(ctx context.Context, id, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetTokenErr != nil {
		return false, s.SetTokenErr
	}
	if s.TokenCollisions > 0 {
		s.TokenCollisions--
		return false, &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}

	for _, l := range s.lists {
		if l.ShareToken != nil && *l.ShareToken == token {
			return false, &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}

	for _, l := range s.lists {
		if l.ID == id && l.ShareToken == nil {
			t := token
			l.ShareToken = &t
			return true, nil
		}
	}
	return false, nil
}

func (s *SavedListStore) CreateItems(ctx context.Context, items []*models.SavedListItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateItemsErr != nil {
		return s.CreateItemsErr
	}

	for _, item := range items {
		s.nextID++
		cp := *item
		cp.ID = fmt.Sprintf("sli-%d", s.nextID)
		s.items[cp.ListID] = append(s.items[cp.ListID], &cp)
	}
	return nil
}

func (s *SavedListStore) GetItems(ctx context.Context, listID string) ([]*models.SavedListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetItemsErr != nil {
		return nil, s.GetItemsErr
	}

	var out []*models.SavedListItem
	for _, item := range s.items[listID] {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}
