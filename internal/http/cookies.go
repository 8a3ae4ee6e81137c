package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// sessionID returns the browser's session namespace from its cookie.
// Anything that is not a UUID is ignored.
func (s *Server) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (s *Server) storeFor(id string) *session.Store {
	return session.NewStore(s.sessions, id,
		session.WithVerifier(s.verifier),
		session.WithLogger(s.logger))
}

// currentSession loads the session bound to the request cookie.
func (s *Server) currentSession(ctx context.Context, r *http.Request) (*session.Store, session.Session, bool) {
	id, ok := s.sessionID(r)
	if !ok {
		return nil, session.Session{}, false
	}
	store := s.storeFor(id)
	sess, ok := store.Load(ctx)
	if !ok {
		return store, session.Session{}, false
	}
	return store, sess, true
}

// rotateSession binds a successful sign-in to id: the browser's previous
// namespace is cleared and the cookie replaced, so an id issued before
// sign-in never becomes authenticated.
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request, id string) {
	if old, ok := s.sessionID(r); ok && old != id {
		if err := s.storeFor(old).Clear(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to clear previous session", log.FieldError, err.Error())
		}
	}
	s.setCookie(w, id)
}

func (s *Server) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirect navigates the browser: HX-Redirect for htmx, 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if IsHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// unauthorized drops the session and sends the browser to the login page.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, store *session.Store) {
	if store != nil {
		_ = store.Clear(r.Context())
	}
	s.appMetrics.incUnauthorized()
	s.expireCookie(w)
	redirect(w, r, "/login")
}
