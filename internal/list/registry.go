package list

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/repository"
)

// Registry hands out one Manager per user. Managers are created on first use
// and dropped when the user's session ends, so a later anonymous viewer can
// never see stale state.
type Registry struct {
	items  repository.ItemRepository
	logger *logrus.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry creates an empty manager registry.
func NewRegistry(items repository.ItemRepository, logger *logrus.Logger) *Registry {
	return &Registry{
		items:    items,
		logger:   logger,
		managers: make(map[string]*Manager),
	}
}

// ForUser returns the manager bound to userID, creating one if needed.
func (r *Registry) ForUser(userID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[userID]
	if !ok {
		m = NewManager(r.items, r.logger)
		r.managers[userID] = m
	}
	return m
}

// ClearUser wipes and removes the manager for userID, if any. In-flight
// operations against the cleared manager become no-ops.
func (r *Registry) ClearUser(userID string) {
	r.mu.Lock()
	m, ok := r.managers[userID]
	delete(r.managers, userID)
	r.mu.Unlock()

	if ok {
		m.Clear()
		r.logger.WithField("user_id", userID).Debug("cleared list state")
	}
}
