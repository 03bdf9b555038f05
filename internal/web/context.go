package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	defaultCookieName = "projstat_session"

	// sessionHeader lets API clients without a cookie jar pin a session.
	sessionHeader = "X-Session-ID"
)

type contextKey string

const sessionKey contextKey = "session_id"

// withSession resolves the caller's session ID, issuing a new one in a
// cookie when the request carries none.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := validSessionID(r.Header.Get(sessionHeader))
		if id == "" {
			if c, err := r.Cookie(s.opts.Session.CookieName); err == nil {
				id = validSessionID(c.Value)
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     s.opts.Session.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.opts.Session.TTL.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the session ID set by withSession.
func sessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}

// validSessionID returns the canonical form of a UUID session ID, or "".
func validSessionID(raw string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
