package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/logging"
)

// sessionHeader lets API clients carry their session without cookies.
const sessionHeader = "X-Session-ID"

// WithRequestMetadata adds IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, clientIP(r), r.UserAgent())
}

// sessionMiddleware attaches every request to a workspace. The session ID
// comes from the X-Session-ID header or the session cookie; unknown or
// expired IDs get a fresh workspace.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		if id == "" {
			if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
				id = c.Value
			}
		}

		sid, created := s.service.EnsureSession(id)
		if created {
			logging.FromContext(r.Context()).Debug("session created", "session_id", sid)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.Session.CookieName,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(s.cfg.Session.IdleTimeout.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(sessionHeader, sid)

		ctx := logging.WithSession(r.Context(), sid)
		ctx = WithRequestMetadata(ctx, r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the workspace of the request.
func sessionID(r *http.Request) string {
	return logging.SessionFromContext(r.Context())
}
