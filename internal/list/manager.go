package list

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

// Entry is the in-memory representation of one active-list item. Price holds
// the raw text as last typed by the user, not the value the store persisted,
// so an in-progress edit such as a trailing decimal point survives the
// round trip.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Completed bool   `json:"completed"`
}

// View is a derived, filtered rendering of the current state: either the
// pending or the completed subset, with the total over that same subset
// formatted to two decimal places.
type View struct {
	Entries []Entry `json:"entries"`
	Total   string  `json:"total"`
}

// Manager owns the in-memory state of one user's active list and keeps it
// synchronized with the store. Every mutation goes to the store first; local
// state changes only after the store confirms. Updates land in confirmation
// order, so two racing edits resolve to whichever write confirmed last.
type Manager struct {
	items  repository.ItemRepository
	logger *logrus.Logger

	// fetchFailed is the recoverable error state of the last load. It is
	// readable without taking the state lock.
	fetchFailed atomic.Bool

	mu            sync.Mutex
	userID        string
	loaded        bool
	entries       []Entry
	showCompleted bool
}

// NewManager creates a manager with no user bound yet.
func NewManager(items repository.ItemRepository, logger *logrus.Logger) *Manager {
	return &Manager{items: items, logger: logger}
}

// LoadItems fetches all items owned by userID, ordered by creation order,
// and replaces the in-memory state. A fetch failure is not returned to the
// caller: it sets the recoverable fetch-failed flag and leaves the previous
// state intact so the caller stays interactive.
func (m *Manager) LoadItems(ctx context.Context, userID string) {
	items, err := m.items.GetByUser(ctx, userID)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Error("failed to fetch items")
		m.fetchFailed.Store(true)

		m.mu.Lock()
		m.userID = userID
		m.mu.Unlock()
		return
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entryFromItem(item))
	}

	m.fetchFailed.Store(false)

	m.mu.Lock()
	m.userID = userID
	m.loaded = true
	m.entries = entries
	m.mu.Unlock()
}

// FetchFailed reports whether the last load failed. The flag clears on the
// next successful load.
func (m *Manager) FetchFailed() bool {
	return m.fetchFailed.Load()
}

// Loaded reports whether the manager holds state from a successful load.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// AddItems splits raw on commas, trims each segment, and drops empty ones.
// Zero remaining segments is a no-op, not an error. The surviving names are
// inserted as one batch of pending items with price 0; the store-assigned
// rows are appended to in-memory state in the order the store returned them.
// On failure the in-memory state is untouched.
func (m *Manager) AddItems(ctx context.Context, raw string) error {
	names := SplitNames(raw)
	if len(names) == 0 {
		return nil
	}

	m.mu.Lock()
	userID := m.userID
	m.mu.Unlock()
	if userID == "" {
		return nil
	}

	items := make([]*models.Item, 0, len(names))
	for _, name := range names {
		items = append(items, &models.Item{
			UserID:    userID,
			Name:      name,
			Price:     0,
			Completed: false,
		})
	}

	return m.InsertBatch(ctx, items)
}

// InsertBatch inserts prepared items through the store and appends the
// created rows to in-memory state. It is the shared insertion path for
// AddItems and for loading a saved list back into the active list.
func (m *Manager) InsertBatch(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	created, err := m.items.CreateBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to add items: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		// The list was cleared while the insert was in flight. The rows
		// exist remotely; dropping the local append is the harmless outcome.
		return nil
	}
	for _, item := range created {
		m.entries = append(m.entries, entryFromItem(item))
	}
	return nil
}

// ToggleCompleted flips the completed flag of the given item remotely and,
// only after the store confirms, locally. An unknown id is a no-op.
func (m *Manager) ToggleCompleted(ctx context.Context, itemID string) error {
	m.mu.Lock()
	idx := m.indexOf(itemID)
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	next := !m.entries[idx].Completed
	m.mu.Unlock()

	if err := m.items.SetCompleted(ctx, itemID, next); err != nil {
		return fmt.Errorf("failed to toggle item: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx = m.indexOf(itemID); idx >= 0 {
		m.entries[idx].Completed = next
	}
	return nil
}

// UpdatePrice persists the parsed price (non-numeric input coerces to 0) and
// then stores the raw text locally so the display matches what the user
// typed. An unknown id is a no-op.
func (m *Manager) UpdatePrice(ctx context.Context, itemID, raw string) error {
	m.mu.Lock()
	idx := m.indexOf(itemID)
	m.mu.Unlock()
	if idx < 0 {
		return nil
	}

	if err := m.items.SetPrice(ctx, itemID, ParsePrice(raw)); err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx = m.indexOf(itemID); idx >= 0 {
		m.entries[idx].Price = raw
	}
	return nil
}

// DeleteItem removes the item remotely and, on success, locally.
func (m *Manager) DeleteItem(ctx context.Context, itemID string) error {
	if err := m.items.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOf(itemID); idx >= 0 {
		m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	}
	return nil
}

// ResetAll deletes every item owned by the bound user. On success the local
// state empties and the completed-items view toggle resets to pending.
func (m *Manager) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	userID := m.userID
	m.mu.Unlock()
	if userID == "" {
		return nil
	}

	if err := m.items.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset list: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.showCompleted = false
	return nil
}

// DerivedView filters the current entries by the completed flag and sums the
// prices of that same subset. It recomputes from current state on every call.
func (m *Manager) DerivedView(showCompleted bool) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := View{Entries: []Entry{}}
	var total float64
	for _, e := range m.entries {
		if e.Completed != showCompleted {
			continue
		}
		view.Entries = append(view.Entries, e)
		total += ParsePrice(e.Price)
	}
	view.Total = fmt.Sprintf("%.2f", total)
	return view
}

// Entries returns a copy of all entries in creation order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// ShowCompleted reports which subset the user is currently viewing.
func (m *Manager) ShowCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showCompleted
}

// SetShowCompleted switches between the pending and completed views.
func (m *Manager) SetShowCompleted(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showCompleted = show
}

// UserID returns the bound user, or "" after Clear.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Clear wipes the in-memory state and unbinds the user. Store-call results
// that arrive afterwards are dropped rather than applied.
func (m *Manager) Clear() {
	m.fetchFailed.Store(false)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = ""
	m.loaded = false
	m.entries = nil
	m.showCompleted = false
}

// indexOf returns the position of the entry with the given id, or -1.
// Callers must hold m.mu.
func (m *Manager) indexOf(itemID string) int {
	for i, e := range m.entries {
		if e.ID == itemID {
			return i
		}
	}
	return -1
}

func entryFromItem(item *models.Item) Entry {
	return Entry{
		ID:        item.ID,
		Name:      item.Name,
		Price:     strconv.FormatFloat(item.Price, 'f', -1, 64),
		Completed: item.Completed,
	}
}

// SplitNames splits raw input on commas, trims leading and trailing
// whitespace from each segment, and drops segments that end up empty.
// Internal whitespace is preserved.
func SplitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParsePrice converts raw price text to a number, coercing anything that is
// not a non-negative decimal to 0. Typing junk into a price field must never
// surface as an error.
func ParsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
