package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresucko/vistalista/internal/models"
)

// GrantStore is an in-memory ShareGrantRepository.
type GrantStore struct {
	mu     sync.Mutex
	nextID int
	grants []*models.ShareGrant

	CreateErr error
}

// NewGrantStore creates an empty in-memory grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{}
}

func (s *GrantStore) Create(ctx context.Context, grant *models.ShareGrant) (*models.ShareGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.nextID++
	cp := *grant
	cp.ID = fmt.Sprintf("grant-%d", s.nextID)
	cp.CreatedAt = time.Now()
	s.grants = append(s.grants, &cp)
	out := cp
	return &out, nil
}

func (s *GrantStore) GetByList(ctx context.Context, listID string) ([]*models.ShareGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.ShareGrant
	for _, g := range s.grants {
		if g.ListID == listID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}
