package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
)

// UserStore is an in-memory UserRepository.
type UserStore struct {
	mu     sync.Mutex
	nextID int
	users  []*models.User

	CreateErr error
	GetErr    error
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.nextID++
	cp := *user
	cp.ID = fmt.Sprintf("user-%d", s.nextID)
	cp.CreatedAt = time.Now()
	s.users = append(s.users, &cp)
	out := cp
	return &out, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserStore) SetLanguage(ctx context.Context, id, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.Language = language
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

// SessionStore is an in-memory SessionRepository.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session

	CreateErr error
	GetErr    error
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*models.Session)}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	cp := *session
	cp.CreatedAt = time.Now()
	s.sessions[cp.Token] = &cp
	out := cp
	return &out, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	if session, ok := s.sessions[token]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	delete(s.sessions, token)
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}
