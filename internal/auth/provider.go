package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

var (
	// ErrInvalidCredentials is returned on sign-in with an unknown email or
	// a wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned on sign-up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword is returned on sign-up with a too-short password.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrInvalidEmail is returned on sign-up with an email missing "@".
	ErrInvalidEmail = errors.New("invalid email address")
)

const minPasswordLen = 6

// EventKind identifies a session change.
type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// Event is one session-change notification.
type Event struct {
	Kind    EventKind
	Session *models.Session
}

// Provider is the auth collaborator: it issues and resolves sessions and
// publishes session-change events.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	// CurrentSession resolves a token to its session. An unknown or expired
	// token yields nil, nil: "signed out" is a state, not an error.
	CurrentSession(ctx context.Context, token string) (*models.Session, error)
	// Subscribe returns a stream of session events and an unsubscribe
	// function. Unsubscribing closes the channel.
	Subscribe() (<-chan Event, func())
}

// PasswordProvider implements Provider on top of the users and sessions
// tables, with bcrypt password hashing and opaque uuid session tokens.
type PasswordProvider struct {
	users           repository.UserRepository
	sessions        repository.SessionRepository
	logger          *logrus.Logger
	sessionTTL      time.Duration
	defaultLanguage string

	mu          sync.Mutex
	nextSubID   int
	subscribers map[int]chan Event
}

// NewPasswordProvider creates a password-based auth provider.
func NewPasswordProvider(users repository.UserRepository, sessions repository.SessionRepository,
	sessionTTL time.Duration, defaultLanguage string, logger *logrus.Logger) *PasswordProvider {
	return &PasswordProvider{
		users:           users,
		sessions:        sessions,
		logger:          logger,
		sessionTTL:      sessionTTL,
		defaultLanguage: defaultLanguage,
		subscribers:     make(map[int]chan Event),
	}
}

// SignUp registers a new account and signs it in.
func (p *PasswordProvider) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := p.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Language:     p.defaultLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	p.logger.WithField("user_id", user.ID).Info("User signed up")
	return p.openSession(ctx, user)
}

// SignIn verifies the password and issues a new session.
func (p *PasswordProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := p.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p.openSession(ctx, user)
}

// SignOut deletes the session and broadcasts a signed-out event. An unknown
// token is a no-op.
func (p *PasswordProvider) SignOut(ctx context.Context, token string) error {
	session, err := p.sessions.GetByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := p.sessions.Delete(ctx, token); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	p.logger.WithField("user_id", session.UserID).Info("User signed out")
	p.broadcast(Event{Kind: EventSignedOut, Session: session})
	return nil
}

// CurrentSession resolves a token. Expired sessions are deleted on sight.
func (p *PasswordProvider) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := p.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(time.Now()) {
		if err := p.sessions.Delete(ctx, token); err != nil {
			p.logger.WithError(err).Warn("failed to delete expired session")
		}
		return nil, nil
	}

	return session, nil
}

// Subscribe registers a new event listener.
func (p *PasswordProvider) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan Event, 16)
	p.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subscribers[id]; ok {
				delete(p.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

func (p *PasswordProvider) openSession(ctx context.Context, user *models.User) (*models.Session, error) {
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: time.Now().Add(p.sessionTTL),
	}

	session, err := p.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	p.broadcast(Event{Kind: EventSignedIn, Session: session})
	return session, nil
}

// broadcast delivers an event to all subscribers without blocking; a slow
// subscriber loses events rather than stalling sign-in or sign-out.
func (p *PasswordProvider) broadcast(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
