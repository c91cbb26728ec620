package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/auth"
	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
	"github.com/andresucko/vistalista/internal/share"
	"github.com/andresucko/vistalista/internal/snapshot"
)

// ErrUnsupportedLanguage is returned when a language preference is not one
// of the supported interface languages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Service is the central layer tying auth, list state, snapshots and sharing
// together. Its methods are the application's public operations; the HTTP
// layer is a thin translation on top of them.
type Service struct {
	logger    *logrus.Logger
	Auth      auth.Provider
	Lists     *list.Registry
	Snapshots *snapshot.Store
	Shares    *share.Workflow
	Users     repository.UserRepository
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	authProvider auth.Provider,
	lists *list.Registry,
	snapshots *snapshot.Store,
	shares *share.Workflow,
	users repository.UserRepository,
) *Service {
	return &Service{
		logger:    logger,
		Auth:      authProvider,
		Lists:     lists,
		Snapshots: snapshots,
		Shares:    shares,
		Users:     users,
	}
}

// SignUp registers an account and returns its first session.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return s.Auth.SignUp(ctx, email, password)
}

// SignIn exchanges credentials for a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return s.Auth.SignIn(ctx, email, password)
}

// SignOut ends the session behind the token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.Auth.SignOut(ctx, token)
}

// manager returns the user's list manager, loading its state from the store
// on first use. A failed load leaves the manager in its recoverable
// fetch-failed state rather than surfacing an error here.
func (s *Service) manager(ctx context.Context, userID string) *list.Manager {
	m := s.Lists.ForUser(userID)
	if !m.Loaded() {
		m.LoadItems(ctx, userID)
	}
	return m
}

// Refresh re-fetches the user's items from the store.
func (s *Service) Refresh(ctx context.Context, userID string) *list.Manager {
	m := s.Lists.ForUser(userID)
	m.LoadItems(ctx, userID)
	return m
}

// AddItems adds the comma-separated names in text to the user's active list.
func (s *Service) AddItems(ctx context.Context, userID, text string) error {
	return s.manager(ctx, userID).AddItems(ctx, text)
}

// ToggleCompleted flips an item between pending and added.
func (s *Service) ToggleCompleted(ctx context.Context, userID, itemID string) error {
	return s.manager(ctx, userID).ToggleCompleted(ctx, itemID)
}

// UpdatePrice persists the price parsed from raw and keeps raw as the
// display text.
func (s *Service) UpdatePrice(ctx context.Context, userID, itemID, raw string) error {
	return s.manager(ctx, userID).UpdatePrice(ctx, itemID, raw)
}

// DeleteItem removes one item from the active list.
func (s *Service) DeleteItem(ctx context.Context, userID, itemID string) error {
	return s.manager(ctx, userID).DeleteItem(ctx, itemID)
}

// ResetAll deletes every item on the user's active list.
func (s *Service) ResetAll(ctx context.Context, userID string) error {
	return s.manager(ctx, userID).ResetAll(ctx)
}

// View returns the filtered entries and total for one side of the list.
func (s *Service) View(ctx context.Context, userID string, showCompleted bool) list.View {
	m := s.manager(ctx, userID)
	m.SetShowCompleted(showCompleted)
	return m.DerivedView(showCompleted)
}

// SaveSnapshot saves the current active list under name. A blank name is a
// no-op returning no list.
func (s *Service) SaveSnapshot(ctx context.Context, userID, name string) (*models.SavedList, error) {
	m := s.manager(ctx, userID)
	return s.Snapshots.SaveSnapshot(ctx, name, m.Entries(), userID)
}

// ListSnapshots returns the user's saved lists, newest first.
func (s *Service) ListSnapshots(ctx context.Context, userID string) ([]*models.SavedList, error) {
	return s.Snapshots.ListSnapshots(ctx, userID)
}

// LoadSnapshot copies a saved list's items into the user's active list.
func (s *Service) LoadSnapshot(ctx context.Context, userID, snapshotID string) error {
	return s.Snapshots.LoadSnapshot(ctx, snapshotID, userID, s.manager(ctx, userID))
}

// ShareSnapshot records a grant for the recipient and returns the share
// link.
func (s *Service) ShareSnapshot(ctx context.Context, userID, snapshotID, email string) (string, error) {
	return s.Shares.ShareWithRecipient(ctx, snapshotID, email, userID)
}

// ShareLink returns the share link for a saved list without recording a
// grant, minting the token if needed.
func (s *Service) ShareLink(ctx context.Context, snapshotID string) (string, error) {
	return s.Shares.ShareLink(ctx, snapshotID)
}

// ResolveSharedLink resolves an incoming share token to a read-only view.
func (s *Service) ResolveSharedLink(ctx context.Context, token string) (*share.SharedView, error) {
	return s.Shares.ResolveSharedList(ctx, token)
}

// SetLanguage stores the user's interface language preference.
func (s *Service) SetLanguage(ctx context.Context, userID, language string) error {
	if language != "en" && language != "es" {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if err := s.Users.SetLanguage(ctx, userID, language); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}
	return nil
}
