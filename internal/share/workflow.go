package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

var (
	// ErrNotFound is returned when a share token or saved list id resolves
	// to nothing, so callers can say "link invalid" instead of a generic
	// failure.
	ErrNotFound = errors.New("shared list not found")
	// ErrInvalidEmail is returned before any store call when the recipient
	// email fails the minimal format check.
	ErrInvalidEmail = errors.New("invalid recipient email")
	// ErrShareFailed is returned when the grant could not be recorded,
	// independent of token minting.
	ErrShareFailed = errors.New("failed to share list")
)

// tokenBytes gives 32 hex characters per token.
const tokenBytes = 16

// maxMintAttempts bounds the retry loop on token collisions.
const maxMintAttempts = 5

// SharedView is the read-only result of resolving a share token. It carries
// no ownership: possession of the token is the whole access model.
type SharedView struct {
	ListID string                  `json:"list_id"`
	Name   string                  `json:"name"`
	Items  []*models.SavedListItem `json:"items"`
}

// Workflow mints share tokens for saved lists, records grants for
// recipients, and resolves incoming tokens to viewable lists.
type Workflow struct {
	lists   repository.SavedListRepository
	grants  repository.ShareGrantRepository
	logger  *logrus.Logger
	baseURL string
}

// NewWorkflow creates a share workflow. baseURL is the application origin
// the share links are built on.
func NewWorkflow(lists repository.SavedListRepository, grants repository.ShareGrantRepository,
	baseURL string, logger *logrus.Logger) *Workflow {
	return &Workflow{
		lists:   lists,
		grants:  grants,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// MintOrReuseToken returns the list's share token, generating one if it has
// none yet. A token, once assigned, is stable: calling this any number of
// times yields the same value. Tokens are random fixed-length strings;
// uniqueness is enforced by the store and collisions retried with a fresh
// token. Concurrent minting for the same list converges because only the
// first conditional write lands; the losers re-read the winner's token.
func (w *Workflow) MintOrReuseToken(ctx context.Context, listID string) (string, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		saved, err := w.lists.GetByID(ctx, listID)
		if err != nil {
			return "", fmt.Errorf("failed to read saved list: %w", err)
		}
		if saved == nil {
			return "", fmt.Errorf("saved list %s: %w", listID, ErrNotFound)
		}
		if saved.ShareToken != nil && *saved.ShareToken != "" {
			return *saved.ShareToken, nil
		}

		token, err := newToken()
		if err != nil {
			return "", err
		}

		updated, err := w.lists.SetShareToken(ctx, listID, token)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			return "", fmt.Errorf("failed to assign share token: %w", err)
		}
		if updated {
			w.logger.WithField("list_id", listID).Info("Share token minted")
			return token, nil
		}
		// Someone else assigned a token between our read and write; the
		// next read returns theirs.
	}
	return "", fmt.Errorf("could not assign a unique share token for list %s", listID)
}

// ShareLink mints or reuses the token and returns the full shareable URL.
func (w *Workflow) ShareLink(ctx context.Context, listID string) (string, error) {
	token, err := w.MintOrReuseToken(ctx, listID)
	if err != nil {
		return "", err
	}
	return w.linkFor(token), nil
}

// ShareWithRecipient validates the recipient email, records a grant, then
// mints (or reuses) the token and returns the shareable link. The email
// check happens before any store call; a grant failure is reported as
// ErrShareFailed, distinct from token problems.
func (w *Workflow) ShareWithRecipient(ctx context.Context, listID, recipientEmail, sharingUserID string) (string, error) {
	if !strings.Contains(recipientEmail, "@") {
		return "", ErrInvalidEmail
	}

	_, err := w.grants.Create(ctx, &models.ShareGrant{
		ListID:      listID,
		SharedBy:    sharingUserID,
		SharedEmail: strings.ToLower(strings.TrimSpace(recipientEmail)),
	})
	if err != nil {
		w.logger.WithError(err).WithField("list_id", listID).Error("failed to record share grant")
		return "", fmt.Errorf("%w: %v", ErrShareFailed, err)
	}

	link, err := w.ShareLink(ctx, listID)
	if err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"list_id":   listID,
		"shared_by": sharingUserID,
	}).Info("List shared")

	return link, nil
}

// ResolveSharedList looks up the saved list carrying the token and returns
// its items as a read-only view. Possession of the token is the access
// control; no grant is checked, deliberately. An unknown token is
// ErrNotFound.
func (w *Workflow) ResolveSharedList(ctx context.Context, token string) (*SharedView, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	saved, err := w.lists.GetByShareToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}
	if saved == nil {
		return nil, ErrNotFound
	}

	items, err := w.lists.GetItems(ctx, saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read shared list items: %w", err)
	}

	return &SharedView{
		ListID: saved.ID,
		Name:   saved.Name,
		Items:  items,
	}, nil
}

func (w *Workflow) linkFor(token string) string {
	return fmt.Sprintf("%s/lists/shared/%s", w.baseURL, token)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
