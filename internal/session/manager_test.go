package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/alojadmin/internal/database"
	"github.com/dukerupert/alojadmin/internal/store"
	"github.com/dukerupert/alojadmin/internal/vault"
)

func setupManager(t *testing.T, ttl time.Duration) (*Manager, *store.SessionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	salt, _ := vault.GenerateSalt()
	box, err := vault.New("test-secret", salt)
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	ss := store.NewSessionStore(db)
	return NewManager(ss, box, ttl, slog.New(slog.NewTextHandler(io.Discard, nil))), ss
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ana@example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("upstream-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestStartAndResolve(t *testing.T) {
	m, _ := setupManager(t, 12*time.Hour)

	sess, err := m.Start("ana@example.com", "opaque-token")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Name != "ana" {
		t.Errorf("name = %q, want %q", sess.Name, "ana")
	}

	got, cred, err := m.Resolve(sess.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil {
		t.Fatal("expected session")
	}
	if cred != "opaque-token" {
		t.Errorf("credential = %q, want %q", cred, "opaque-token")
	}

	cred, err = m.Credential(sess.ID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred != "opaque-token" {
		t.Errorf("credential by id = %q, want %q", cred, "opaque-token")
	}
}

func TestStartBoundsExpiryByToken(t *testing.T) {
	m, _ := setupManager(t, 12*time.Hour)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sess, err := m.Start("ana@example.com", signedToken(t, exp))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Errorf("expires_at = %v, want %v", sess.ExpiresAt, exp)
	}
}

func TestStartKeepsTTLWhenTokenOutlivesIt(t *testing.T) {
	m, _ := setupManager(t, time.Hour)

	sess, err := m.Start("ana@example.com", signedToken(t, time.Now().Add(30*24*time.Hour)))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.ExpiresAt.After(time.Now().Add(time.Hour + time.Minute)) {
		t.Errorf("expires_at = %v, want about one hour from now", sess.ExpiresAt)
	}
}

func TestStartRejectsExpiredToken(t *testing.T) {
	m, _ := setupManager(t, time.Hour)

	_, err := m.Start("ana@example.com", signedToken(t, time.Now().Add(-time.Minute)))
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	m, _ := setupManager(t, time.Hour)

	sess, cred, err := m.Resolve("missing")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess != nil || cred != "" {
		t.Errorf("got %v, %q; want nil session", sess, cred)
	}
}

func TestResolveDropsUnreadableCredential(t *testing.T) {
	m, ss := setupManager(t, time.Hour)

	sess, err := ss.Create("ana@example.com", "ana", []byte("not sealed by this box"), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _, err := m.Resolve(sess.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != nil {
		t.Error("expected nil session for unreadable credential")
	}
	if again, _ := ss.GetByID(sess.ID); again != nil {
		t.Error("session with unreadable credential was kept")
	}
}

func TestEnd(t *testing.T) {
	m, _ := setupManager(t, time.Hour)

	sess, _ := m.Start("ana@example.com", "tok")
	if err := m.End(sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if cred, _ := m.Credential(sess.ID); cred != "" {
		t.Errorf("credential after end = %q, want empty", cred)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"ana@example.com":  "ana",
		" luis@x.mx ":      "luis",
		"no-at-sign":       "no-at-sign",
		"@leading.example": "@leading.example",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok {
		t.Fatal("expected expiry")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("opaque token reported an expiry")
	}
}
