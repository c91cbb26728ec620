package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/andresucko/vistalista/internal/auth"
	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/models"
	"github.com/andresucko/vistalista/internal/repository"
	"github.com/andresucko/vistalista/internal/service"
	"github.com/andresucko/vistalista/internal/share"
)

type contextKey string

const sessionKey contextKey = "session"

// Server provides the HTTP JSON API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return withMetrics(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Auth
	s.mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	s.mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	s.mux.Handle("POST /api/auth/signout", s.authenticated(s.handleSignOut))

	// Active list
	s.mux.Handle("GET /api/items", s.authenticated(s.handleGetItems))
	s.mux.Handle("POST /api/items", s.authenticated(s.handleAddItems))
	s.mux.Handle("PUT /api/items/{id}/toggle", s.authenticated(s.handleToggleItem))
	s.mux.Handle("PUT /api/items/{id}/price", s.authenticated(s.handleUpdatePrice))
	s.mux.Handle("DELETE /api/items/{id}", s.authenticated(s.handleDeleteItem))
	s.mux.Handle("DELETE /api/items", s.authenticated(s.handleResetList))

	// Saved lists
	s.mux.Handle("POST /api/lists", s.authenticated(s.handleSaveList))
	s.mux.Handle("GET /api/lists", s.authenticated(s.handleGetSavedLists))
	s.mux.Handle("POST /api/lists/{id}/load", s.authenticated(s.handleLoadList))

	// Sharing
	s.mux.Handle("POST /api/lists/{id}/share", s.authenticated(s.handleShareList))
	s.mux.Handle("POST /api/lists/{id}/share-link", s.authenticated(s.handleShareLink))
	s.mux.Handle("GET /api/lists/shared/{token}", s.authenticated(s.handleSharedList))

	// Preferences
	s.mux.Handle("PUT /api/me/language", s.authenticated(s.handleSetLanguage))

	// Metrics
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// ---------------------------------------------------------------------------
// Session middleware
// ---------------------------------------------------------------------------

// authenticated resolves the bearer token to a session and rejects requests
// without a valid one.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		session, err := s.svc.Auth.CurrentSession(r.Context(), token)
		if err != nil {
			s.logger.WithError(err).Error("failed to resolve session")
			s.respondError(w, http.StatusInternalServerError, "failed to resolve session")
			return
		}
		if session == nil {
			s.respondError(w, http.StatusUnauthorized, "session expired or unknown")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// session returns the session stored by the middleware. It panics only if a
// handler was registered without the middleware, which is a programming
// error.
func session(r *http.Request) *models.Session {
	return r.Context().Value(sessionKey).(*models.Session)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	sess, err := s.svc.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrEmailTaken):
			s.respondError(w, http.StatusConflict, err.Error())
		default:
			s.logger.WithError(err).Error("failed to sign up")
			s.respondError(w, http.StatusInternalServerError, "failed to sign up")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	sess, err := s.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to sign in")
		s.respondError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	s.respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.SignOut(r.Context(), session(r).Token); err != nil {
		s.logger.WithError(err).Error("failed to sign out")
		s.respondError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Active list
// ---------------------------------------------------------------------------

type addItemsRequest struct {
	Text string `json:"text"`
}

type updatePriceRequest struct {
	Price string `json:"price"`
}

// itemsResponse is the full list state the client renders from: the filtered
// view plus the totals of both sides, with the recoverable fetch error flag.
type itemsResponse struct {
	Entries      []list.Entry `json:"entries"`
	Total        string       `json:"total"`
	PendingTotal string       `json:"pending_total"`
	AddedTotal   string       `json:"added_total"`
	FetchFailed  bool         `json:"fetch_failed"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	userID := session(r).UserID
	showCompleted := r.URL.Query().Get("show_completed") == "true"

	var m *list.Manager
	if r.URL.Query().Get("refresh") == "true" {
		m = s.svc.Refresh(r.Context(), userID)
	} else {
		m = s.svc.Lists.ForUser(userID)
		if !m.Loaded() {
			m.LoadItems(r.Context(), userID)
		}
	}
	m.SetShowCompleted(showCompleted)

	view := m.DerivedView(showCompleted)
	s.respondJSON(w, http.StatusOK, itemsResponse{
		Entries:      view.Entries,
		Total:        view.Total,
		PendingTotal: m.DerivedView(false).Total,
		AddedTotal:   m.DerivedView(true).Total,
		FetchFailed:  m.FetchFailed(),
	})
}

func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.AddItems(r.Context(), session(r).UserID, req.Text); err != nil {
		s.logger.WithError(err).Error("failed to add items")
		s.respondError(w, http.StatusInternalServerError, "failed to add items")
		return
	}

	s.respondJSON(w, http.StatusCreated, s.svc.View(r.Context(), session(r).UserID, false))
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ToggleCompleted(r.Context(), session(r).UserID, r.PathValue("id")); err != nil {
		s.writeItemError(w, err, "failed to toggle item")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.UpdatePrice(r.Context(), session(r).UserID, r.PathValue("id"), req.Price); err != nil {
		s.writeItemError(w, err, "failed to update price")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteItem(r.Context(), session(r).UserID, r.PathValue("id")); err != nil {
		s.writeItemError(w, err, "failed to delete item")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleResetList(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetAll(r.Context(), session(r).UserID); err != nil {
		s.logger.WithError(err).Error("failed to reset list")
		s.respondError(w, http.StatusInternalServerError, "failed to reset list")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) writeItemError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	s.logger.WithError(err).Error(message)
	s.respondError(w, http.StatusInternalServerError, message)
}

// ---------------------------------------------------------------------------
// Saved lists
// ---------------------------------------------------------------------------

type saveListRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSaveList(w http.ResponseWriter, r *http.Request) {
	var req saveListRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	saved, err := s.svc.SaveSnapshot(r.Context(), session(r).UserID, req.Name)
	if err != nil {
		s.logger.WithError(err).Error("failed to save list")
		s.respondError(w, http.StatusInternalServerError, "failed to save list")
		return
	}
	if saved == nil {
		// Blank name: nothing saved, nothing failed.
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetSavedLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.ListSnapshots(r.Context(), session(r).UserID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get saved lists")
		s.respondError(w, http.StatusInternalServerError, "failed to get saved lists")
		return
	}

	if lists == nil {
		lists = []*models.SavedList{}
	}
	s.respondJSON(w, http.StatusOK, lists)
}

func (s *Server) handleLoadList(w http.ResponseWriter, r *http.Request) {
	userID := session(r).UserID
	if err := s.svc.LoadSnapshot(r.Context(), userID, r.PathValue("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "saved list not found")
			return
		}
		s.logger.WithError(err).Error("failed to load saved list")
		s.respondError(w, http.StatusInternalServerError, "failed to load saved list")
		return
	}

	s.respondJSON(w, http.StatusOK, s.svc.View(r.Context(), userID, false))
}

// ---------------------------------------------------------------------------
// Sharing
// ---------------------------------------------------------------------------

type shareListRequest struct {
	Email string `json:"email"`
}

type shareLinkResponse struct {
	Link string `json:"link"`
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	var req shareListRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	link, err := s.svc.ShareSnapshot(r.Context(), session(r).UserID, r.PathValue("id"), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrInvalidEmail):
			s.respondError(w, http.StatusBadRequest, "invalid email")
		case errors.Is(err, share.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "saved list not found")
		case errors.Is(err, share.ErrShareFailed):
			s.logger.WithError(err).Error("failed to share list")
			s.respondError(w, http.StatusInternalServerError, "failed to share list")
		default:
			s.logger.WithError(err).Error("failed to build share link")
			s.respondError(w, http.StatusInternalServerError, "failed to build share link")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, shareLinkResponse{Link: link})
}

func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.svc.ShareLink(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, share.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "saved list not found")
			return
		}
		s.logger.WithError(err).Error("failed to build share link")
		s.respondError(w, http.StatusInternalServerError, "failed to build share link")
		return
	}

	s.respondJSON(w, http.StatusOK, shareLinkResponse{Link: link})
}

func (s *Server) handleSharedList(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.ResolveSharedLink(r.Context(), r.PathValue("token"))
	if err != nil {
		if errors.Is(err, share.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "shared list not found")
			return
		}
		s.logger.WithError(err).Error("failed to resolve shared list")
		s.respondError(w, http.StatusInternalServerError, "failed to resolve shared list")
		return
	}

	s.respondJSON(w, http.StatusOK, view)
}

// ---------------------------------------------------------------------------
// Preferences
// ---------------------------------------------------------------------------

type setLanguageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req setLanguageRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SetLanguage(r.Context(), session(r).UserID, req.Language); err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedLanguage):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "user not found")
		default:
			s.logger.WithError(err).Error("failed to set language")
			s.respondError(w, http.StatusInternalServerError, "failed to set language")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"language": req.Language})
}
