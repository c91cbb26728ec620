package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

// ItemStore is an in-memory ItemRepository. Identifiers and positions are
// assigned on insert, mirroring the store's behavior. Error fields, when
// set, make the corresponding method fail without touching state.
type ItemStore struct {
	mu      sync.Mutex
	nextID  int
	nextPos int64
	items   []*models.Item

	GetErr          error
	CreateErr       error
	SetCompletedErr error
	SetPriceErr     error
	DeleteErr       error
	DeleteAllErr    error

	// CreateCalls counts CreateBatch invocations that reached the store.
	CreateCalls int
}

// NewItemStore creates an empty in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{}
}

func (s *ItemStore) GetByUser(ctx context.Context, userID string) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}

	var out []*models.Item
	for _, item := range s.items {
		if item.UserID == userID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *ItemStore) CreateBatch(ctx context.Context, items []*models.Item) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	var created []*models.Item
	for _, item := range items {
		s.nextID++
		s.nextPos++
		cp := *item
		cp.ID = fmt.Sprintf("item-%d", s.nextID)
		cp.Position = s.nextPos
		cp.CreatedAt = time.Now()
		s.items = append(s.items, &cp)
		out := cp
		created = append(created, &out)
	}
	return created, nil
}

func (s *ItemStore) SetCompleted(ctx context.Context, itemID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetCompletedErr != nil {
		return s.SetCompletedErr
	}

	for _, item := range s.items {
		if item.ID == itemID {
			item.Completed = completed
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
}

func (s *ItemStore) SetPrice(ctx context.Context, itemID string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetPriceErr != nil {
		return s.SetPriceErr
	}

	for _, item := range s.items {
		if item.ID == itemID {
			item.Price = price
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
}

func (s *ItemStore) Delete(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	for i, item := range s.items {
		if item.ID == itemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, repository.ErrNotFound)
}

func (s *ItemStore) DeleteByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteAllErr != nil {
		return s.DeleteAllErr
	}

	var kept []*models.Item
	for _, item := range s.items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return nil
}

// Count returns how many items the store holds for userID.
func (s *ItemStore) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		if item.UserID == userID {
			n++
		}
	}
	return n
}

// Get returns a copy of the stored item, or nil.
func (s *ItemStore) Get(itemID string) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == itemID {
			cp := *item
			return &cp
		}
	}
	return nil
}
