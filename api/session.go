package main

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "eventboard"
	// filterKey holds the remembered event list filters, URL-encoded.
	filterKey = "filter"
	// userKey holds the id of the authenticated user. It is written by the
	// login flow, which lives outside this service.
	userKey = "user_id"
)

type contextKey string

const userIDKey contextKey = "userID"

func newSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// session returns the request session. A cookie that cannot be decoded is
// replaced by a fresh session.
func (app *application) session(r *http.Request) *sessions.Session {
	s, err := app.Sessions.Get(r, sessionName)
	if err != nil {
		log.Printf("discarding unreadable session: %v", err)
	}
	return s
}

func storedFilter(s *sessions.Session) url.Values {
	raw, _ := s.Values[filterKey].(string)
	if raw == "" {
		return nil
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		log.Printf("discarding unreadable filter %q: %v", raw, err)
		return nil
	}
	return v
}

func storeFilter(s *sessions.Session, v url.Values) {
	if len(v) == 0 {
		delete(s.Values, filterKey)
		return
	}
	s.Values[filterKey] = v.Encode()
}

// authenticate puts the session user, if any, into the request context.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := app.session(r)
		if id, ok := s.Values[userKey].(int64); ok && id > 0 {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser rejects anonymous requests with 403.
func (app *application) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(r); !ok {
			_ = app.SendErrorJSON(w, http.StatusForbidden, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(userIDKey).(int64)
	return id, ok
}
