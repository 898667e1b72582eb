package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/alojadmin/internal/auth"
	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/middleware"
	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/session"
)

// Authenticator checks staff credentials against the booking API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.LoginResult, error)
}

// SessionManager starts and ends console sessions.
type SessionManager interface {
	Start(email, token string) (*model.Session, error)
	End(sessionID int64) error
}

// SessionCleaner releases per-session state held outside the session store.
type SessionCleaner interface {
	Forget(sessionID int64)
}

// ClientCloser disconnects the websocket clients of a session.
type ClientCloser interface {
	CloseOwner(owner int64)
}

type AuthHandler struct {
	gw           Authenticator
	sessions     SessionManager
	views        SessionCleaner
	clients      ClientCloser
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(gw Authenticator, sessions SessionManager, views SessionCleaner, clients ClientCloser, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		gw:           gw,
		sessions:     sessions,
		views:        views,
		clients:      clients,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Login accepts a JSON body or a form with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	jsonReq := wantsJSON(r)

	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}
	req.Email = strings.TrimSpace(req.Email)

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Correo y contraseña son obligatorios")
		return
	}

	res, err := h.gw.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			msg := apiErr.Message
			if msg == "" {
				msg = "Credenciales inválidas"
			}
			h.logger.Info("login rejected", "email", req.Email, "status", apiErr.StatusCode)
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		h.logger.Error("login upstream", "email", req.Email, "error", err)
		writeUpstreamError(w, err)
		return
	}

	sess, err := h.sessions.Start(req.Email, res.Token)
	if err != nil {
		if errors.Is(err, session.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "Tu sesión ha expirado, inicia sesión de nuevo")
			return
		}
		h.logger.Error("start session", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, gateway.FallbackMessage)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure || r.TLS != nil,
	})
	h.logger.Info("login", "email", sess.Email, "session_id", sess.ID)

	if !jsonReq {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	expires := sess.ExpiresAt
	writeJSON(w, http.StatusOK, meResponse{Email: sess.Email, Name: sess.Name, ExpiresAt: &expires})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r.Context()); id != 0 {
		if err := h.sessions.End(id); err != nil {
			h.logger.Error("end session", "session_id", id, "error", err)
		}
		h.views.Forget(id)
		if h.clients != nil {
			h.clients.CloseOwner(id)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure || r.TLS != nil,
	})

	if !wantsJSON(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No autenticado")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Email: ac.Email, Name: ac.Name})
}

// LoginInfo answers page navigations to /login; the console itself posts
// credentials to the same path.
func (h *AuthHandler) LoginInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Inicia sesión enviando correo y contraseña a POST /login",
	})
}
