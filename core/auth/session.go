package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"rpi-diario/config"
	"rpi-diario/core/rbac"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

// ErrBadCredentials is returned by Login when the password does not match
// the stored hash.
var ErrBadCredentials = errors.New("invalid credentials")

// SessionManager owns the login session lifecycle: the peppered password
// check, role derivation from the account's staff flag and the CSRF token
// minted per session.
type SessionManager struct {
	sessions store.SessionStore
	pepper   string
	csrfKey  string
	ttl      time.Duration
	logger   *utils.Logger
}

func NewSessionManager(sessions store.SessionStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		pepper:   cfg.Pepper,
		csrfKey:  cfg.CSRFKey,
		ttl:      cfg.EffectiveSessionTTL(),
		logger:   logger,
	}
}

// Login verifies the password against the stored peppered hash and opens a
// session carrying the roles the staff flag grants. A fresh session id is
// issued on every login, so a pre-login cookie cannot be fixated.
func (m *SessionManager) Login(ctx context.Context, user *store.User, password, ip, userAgent string) (*store.SessionRecord, error) {
	ok, err := VerifyPassword(password, m.pepper, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadCredentials
	}
	id := uuid.Must(uuid.NewV4()).String()
	csrf, err := m.mintCSRF(id)
	if err != nil {
		return nil, err
	}
	now := utils.NowUTC()
	rec := &store.SessionRecord{
		ID:         id,
		UserID:     user.ID,
		Username:   user.Username,
		Roles:      rbac.RolesFor(user.IsStaff),
		IP:         ip,
		UserAgent:  userAgent,
		CSRFToken:  csrf,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.sessions.SaveSession(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// mintCSRF binds the token to the session id when a key is configured and
// falls back to a random token otherwise.
func (m *SessionManager) mintCSRF(sessionID string) (string, error) {
	if m.csrfKey != "" {
		return GenerateCSRF(m.csrfKey, sessionID)
	}
	return utils.RandString(32)
}

// Logout drops the session; a missing session is not an error.
func (m *SessionManager) Logout(ctx context.Context, sessID, actor string) error {
	return m.sessions.DeleteSession(ctx, sessID, actor)
}
