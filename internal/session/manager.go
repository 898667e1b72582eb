package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/store"
	"github.com/dukerupert/alojadmin/internal/vault"
)

// ErrTokenExpired is returned when the upstream token is already past its
// expiry at login.
var ErrTokenExpired = errors.New("upstream token already expired")

// Manager binds local console sessions to sealed upstream credentials.
type Manager struct {
	store  *store.SessionStore
	box    *vault.Box
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewManager(ss *store.SessionStore, box *vault.Box, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:  ss,
		box:    box,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Start creates a session for email holding the upstream token. The session
// ends at the configured TTL or at the token's own expiry, whichever is first.
func (m *Manager) Start(email, token string) (*model.Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	if exp, ok := TokenExpiry(token); ok {
		if !exp.After(now) {
			return nil, ErrTokenExpired
		}
		if exp.Before(expiresAt) {
			expiresAt = exp
		}
	}

	sealed, err := m.box.Seal([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("seal credential: %w", err)
	}

	sess, err := m.store.Create(email, DisplayName(email), sealed, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Resolve returns the live session for a cookie token and its upstream
// credential. Unknown or expired tokens yield a nil session.
func (m *Manager) Resolve(token string) (*model.Session, string, error) {
	sess, err := m.store.GetByToken(token)
	if err != nil {
		return nil, "", err
	}
	if sess == nil {
		return nil, "", nil
	}
	cred, ok := m.open(sess)
	if !ok {
		return nil, "", nil
	}
	return sess, cred, nil
}

// Credential returns the upstream credential of a live session, or "" if the
// session is gone.
func (m *Manager) Credential(sessionID int64) (string, error) {
	sess, err := m.store.GetByID(sessionID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	cred, _ := m.open(sess)
	return cred, nil
}

// open unseals the credential. A credential sealed under another key cannot
// be recovered, so its session is dropped.
func (m *Manager) open(sess *model.Session) (string, bool) {
	plain, err := m.box.Open(sess.SealedCredential)
	if err != nil {
		m.logger.Warn("drop session with unreadable credential", "session_id", sess.ID, "error", err)
		if err := m.store.Delete(sess.ID); err != nil {
			m.logger.Error("delete session", "session_id", sess.ID, "error", err)
		}
		return "", false
	}
	return string(plain), true
}

func (m *Manager) End(sessionID int64) error {
	return m.store.Delete(sessionID)
}

// Sweep deletes expired sessions and returns their ids.
func (m *Manager) Sweep() ([]int64, error) {
	return m.store.DeleteExpired()
}

// DisplayName derives the console display name from an email address.
func DisplayName(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The upstream API is the verifier; the claim only bounds the local session.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
