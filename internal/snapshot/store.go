package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

// ItemInserter is the piece of the list manager a snapshot load needs: the
// batch insertion path that appends to the active list.
type ItemInserter interface {
	InsertBatch(ctx context.Context, items []*models.Item) error
}

// Store saves, lists and restores named snapshots of the active list.
// Snapshots are deep copies: mutating the active list after a save never
// alters a saved list, and loading one creates brand-new active items.
type Store struct {
	lists  repository.SavedListRepository
	logger *logrus.Logger
}

// NewStore creates a snapshot store.
func NewStore(lists repository.SavedListRepository, logger *logrus.Logger) *Store {
	return &Store{lists: lists, logger: logger}
}

// SaveSnapshot copies the given entries under a new named list owned by
// userID. A blank name is a no-op that returns no list and no error. The
// list record and the item copies are two store calls, not a transaction: if
// the copy fails after the record succeeded, the error is reported and the
// empty list record remains as visible fallout.
func (s *Store) SaveSnapshot(ctx context.Context, name string, entries []list.Entry, userID string) (*models.SavedList, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	saved, err := s.lists.Create(ctx, &models.SavedList{
		UserID: userID,
		Name:   name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save list: %w", err)
	}

	items := make([]*models.SavedListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, &models.SavedListItem{
			ListID:    saved.ID,
			Name:      e.Name,
			Price:     list.ParsePrice(e.Price),
			Completed: e.Completed,
		})
	}

	if err := s.lists.CreateItems(ctx, items); err != nil {
		return nil, fmt.Errorf("saved list %s created but item copy failed: %w", saved.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"list_id": saved.ID,
		"items":   len(items),
	}).Info("List saved")

	return saved, nil
}

// ListSnapshots returns the user's saved lists, newest first.
func (s *Store) ListSnapshots(ctx context.Context, userID string) ([]*models.SavedList, error) {
	lists, err := s.lists.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved lists: %w", err)
	}
	return lists, nil
}

// LoadSnapshot copies the snapshot's items back into the active list as new
// items owned by userID: prices reset to 0, completed flags preserved,
// inserted through the manager's batch path so the load adds to the active
// list instead of replacing it.
func (s *Store) LoadSnapshot(ctx context.Context, snapshotID, userID string, inserter ItemInserter) error {
	saved, err := s.lists.GetByID(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load saved list: %w", err)
	}
	if saved == nil {
		return fmt.Errorf("saved list %s: %w", snapshotID, repository.ErrNotFound)
	}

	items, err := s.lists.GetItems(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load saved list items: %w", err)
	}

	fresh := make([]*models.Item, 0, len(items))
	for _, item := range items {
		fresh = append(fresh, &models.Item{
			UserID:    userID,
			Name:      item.Name,
			Price:     0,
			Completed: item.Completed,
		})
	}

	if err := inserter.InsertBatch(ctx, fresh); err != nil {
		return fmt.Errorf("failed to insert loaded items: %w", err)
	}

	return nil
}
