package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"rpi-diario/config"
	"rpi-diario/core/rbac"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("segredo-forte", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword("segredo-forte", "pepper", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("segredo-errado", "pepper", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
	// A different pepper must invalidate the stored hash.
	ok, err = VerifyPassword("segredo-forte", "outro", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch with wrong pepper, ok=%v err=%v", ok, err)
	}
}

func TestCSRFTokenRoundtrip(t *testing.T) {
	token, err := GenerateCSRF("key", "sess-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
	other, err := GenerateCSRF("key", "sess-2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == other {
		t.Fatalf("tokens must differ per session")
	}
	if !VerifyCSRF(token, token) {
		t.Fatalf("token must verify against itself")
	}
	if VerifyCSRF(token, other) {
		t.Fatalf("cross-session token must fail")
	}
}

type memorySessions struct {
	saved map[string]*store.SessionRecord
}

func newMemorySessions() *memorySessions {
	return &memorySessions{saved: map[string]*store.SessionRecord{}}
}

func (m *memorySessions) SaveSession(ctx context.Context, sess *store.SessionRecord) error {
	m.saved[sess.ID] = sess
	return nil
}

func (m *memorySessions) GetSession(ctx context.Context, id string) (*store.SessionRecord, error) {
	return m.saved[id], nil
}

func (m *memorySessions) UpdateActivity(ctx context.Context, id string, seenAt time.Time, ttl time.Duration) error {
	return nil
}

func (m *memorySessions) DeleteSession(ctx context.Context, id, actor string) error {
	delete(m.saved, id)
	return nil
}

func (m *memorySessions) DeleteSessionsForUser(ctx context.Context, userID int64) error {
	return nil
}

func (m *memorySessions) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func TestSessionManagerLogin(t *testing.T) {
	cfg := &config.AppConfig{Pepper: "pepper", CSRFKey: "key", SessionTTL: 2 * time.Hour}
	sessions := newMemorySessions()
	sm := NewSessionManager(sessions, cfg, utils.NewNopLogger())
	hash, err := HashPassword("segredo-forte", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	staff := &store.User{ID: 7, Username: "chefe", IsStaff: true, PasswordHash: hash}

	rec, err := sm.Login(context.Background(), staff, "segredo-forte", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.ID == "" || sessions.saved[rec.ID] == nil {
		t.Fatalf("session not persisted: %+v", rec)
	}
	hasAdmin := false
	for _, role := range rec.Roles {
		if role == rbac.RoleAdmin {
			hasAdmin = true
		}
	}
	if !hasAdmin {
		t.Fatalf("staff login must grant the admin role, got %v", rec.Roles)
	}
	if !VerifyCSRF(rec.CSRFToken, mustCSRF(t, "key", rec.ID)) {
		t.Fatalf("csrf token not bound to session id")
	}
	want := rec.CreatedAt.Add(2 * time.Hour)
	if !rec.ExpiresAt.Equal(want) {
		t.Fatalf("expiry %v, want %v", rec.ExpiresAt, want)
	}

	if _, err := sm.Login(context.Background(), staff, "segredo-errado", "10.0.0.1", "test-agent"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if len(sessions.saved) != 1 {
		t.Fatalf("failed login must not persist a session")
	}

	if err := sm.Logout(context.Background(), rec.ID, staff.Username); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.saved) != 0 {
		t.Fatalf("logout must drop the session")
	}
}

func TestSessionManagerAgentRoles(t *testing.T) {
	cfg := &config.AppConfig{Pepper: "pepper", SessionTTL: time.Hour}
	sm := NewSessionManager(newMemorySessions(), cfg, utils.NewNopLogger())
	hash, err := HashPassword("segredo-forte", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	agent := &store.User{ID: 8, Username: "agente", PasswordHash: hash}

	rec, err := sm.Login(context.Background(), agent, "segredo-forte", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, role := range rec.Roles {
		if role == rbac.RoleAdmin {
			t.Fatalf("agent login must not grant the admin role")
		}
	}
	if rec.CSRFToken == "" {
		t.Fatalf("login without a csrf key must still mint a token")
	}
}

func mustCSRF(t *testing.T, key, sessionID string) string {
	t.Helper()
	token, err := GenerateCSRF(key, sessionID)
	if err != nil {
		t.Fatalf("generate csrf: %v", err)
	}
	return token
}
