package auth

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/models"
)

// ListClearer is the slice of the list layer the gate needs: the ability to
// drop a user's in-memory list state.
type ListClearer interface {
	ClearUser(userID string)
}

// Gate observes the provider's session stream and keeps the list layer
// consistent with it: when a session ends, the user's in-memory items are
// cleared so no stale data survives into an anonymous view. The subscription
// is taken at construction and released exactly once, even if the gate is
// torn down while events are still in flight.
type Gate struct {
	provider    Provider
	lists       ListClearer
	logger      *logrus.Logger
	events      <-chan Event
	unsubscribe func()
	closeOnce   sync.Once
	done        chan struct{}
}

// NewGate subscribes to the provider and returns a gate ready to run.
func NewGate(provider Provider, lists ListClearer, logger *logrus.Logger) *Gate {
	events, unsubscribe := provider.Subscribe()
	return &Gate{
		provider:    provider,
		lists:       lists,
		logger:      logger,
		events:      events,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}
}

// Resume retrieves the session for a previously issued token. Any failure,
// including a store error, resolves to "no user"; startup never fails on a
// bad session.
func (g *Gate) Resume(ctx context.Context, token string) *models.Session {
	session, err := g.provider.CurrentSession(ctx, token)
	if err != nil {
		g.logger.WithError(err).Warn("failed to retrieve session, treating as signed out")
		return nil
	}
	return session
}

// Run consumes session events until the context is cancelled or the gate is
// closed. It releases the subscription on the way out.
func (g *Gate) Run(ctx context.Context) {
	defer g.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.done:
			return
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			g.handle(ev)
		}
	}
}

// Close stops the run loop and releases the subscription. Safe to call more
// than once and regardless of whether Run was ever started.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.done) })
	g.unsubscribe()
}

func (g *Gate) handle(ev Event) {
	if ev.Kind != EventSignedOut || ev.Session == nil {
		return
	}
	g.lists.ClearUser(ev.Session.UserID)
	g.logger.WithField("user_id", ev.Session.UserID).Debug("session ended, list state dropped")
}
