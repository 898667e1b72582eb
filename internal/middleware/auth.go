package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/alojadmin/internal/auth"
	"github.com/dukerupert/alojadmin/internal/model"
)

const SessionCookieName = "alojadmin_session"

// SessionResolver maps a session cookie to a live session and its upstream
// credential.
type SessionResolver interface {
	Resolve(token string) (*model.Session, string, error)
}

// RequireAuth validates the session cookie and populates AuthContext.
// API and websocket requests get a JSON 401; page requests are redirected.
func RequireAuth(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			sess, cred, err := sessions.Resolve(cookie.Value)
			if err != nil {
				logger.Error("resolve session", "error", err)
				unauthorized(w, r)
				return
			}
			if sess == nil || cred == "" {
				unauthorized(w, r)
				return
			}

			ac := auth.AuthContext{
				SessionID:  sess.ID,
				Email:      sess.Email,
				Name:       sess.Name,
				Credential: cred,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.URL.Path == "/ws" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeError(w, http.StatusUnauthorized, "Tu sesión ha expirado, inicia sesión de nuevo")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
