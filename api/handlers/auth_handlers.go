package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"rpi-diario/config"
	"rpi-diario/core/auth"
	"rpi-diario/core/notify"
	"rpi-diario/core/rbac"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type AuthHandler struct {
	cfg            *config.AppConfig
	users          store.UsersStore
	sessionManager *auth.SessionManager
	policy         *rbac.Policy
	audits         store.AuditStore
	mailer         *notify.Mailer
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sm *auth.SessionManager, policy *rbac.Policy, audits store.AuditStore, mailer *notify.Mailer, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessionManager: sm, policy: policy, audits: audits, mailer: mailer, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	if err := utils.ValidateUsername(cred.Username); err != nil {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}
	user, err := h.users.GetUserByUsername(r.Context(), cred.Username)
	if err != nil || user == nil {
		h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "user missing")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "account pending activation")
		http.Error(w, "account pending activation", http.StatusForbidden)
		return
	}
	sess, err := h.sessionManager.Login(r.Context(), user, cred.Password, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "invalid password")
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if h.logger != nil {
			h.logger.Errorf("login session create failed for %s: %v", cred.Username, err)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	now := time.Now().UTC()
	_ = h.users.TouchLastLogin(r.Context(), user.ID, now)
	h.audits.Log(r.Context(), user.Username, "auth.login_success", "")

	secure := isSecureRequest(r)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    sess.CSRFToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       h.userDTO(user, sess.Roles),
		"csrf_token": sess.CSRFToken,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if sr := sessionFrom(r); sr != nil {
		actor = sr.Username
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		_ = h.sessionManager.Logout(r.Context(), cookie.Value, actor)
	}
	secure := isSecureRequest(r)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.audits.Log(r.Context(), actor, "auth.logout", "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	user, err := h.users.GetUserByUsername(r.Context(), sr.Username)
	if err != nil || user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       h.userDTO(user, sr.Roles),
		"csrf_token": sr.CSRFToken,
	})
}

// Register creates an inactive account awaiting staff approval. The admin is
// notified by mail when delivery is configured.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Rank     string `json:"rank"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	payload.Username = strings.ToLower(strings.TrimSpace(payload.Username))
	if err := utils.ValidateUsername(payload.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := utils.ValidatePassword(payload.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.FullName) == "" {
		http.Error(w, "full name required", http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(payload.Password, h.cfg.Pepper)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	user := &store.User{
		Username:     payload.Username,
		FullName:     strings.TrimSpace(payload.FullName),
		Rank:         strings.TrimSpace(payload.Rank),
		Email:        strings.TrimSpace(payload.Email),
		PasswordHash: hash,
		Active:       false,
	}
	if _, err := h.users.CreateUser(r.Context(), user); err != nil {
		if err == store.ErrConflict {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), user.Username, "auth.register", "awaiting activation")
	h.mailer.NotifyRegistration(user.Username, user.FullName)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "pending_activation",
		"user":   h.userDTO(user, nil),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var payload struct {
		Current  string `json:"current_password"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := utils.ValidatePassword(payload.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.users.GetUser(r.Context(), sr.UserID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	ok, _ := auth.VerifyPassword(payload.Current, h.cfg.Pepper, user.PasswordHash)
	if !ok {
		http.Error(w, "current password invalid", http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(payload.Password, h.cfg.Pepper)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.users.SetPassword(r.Context(), sr.UserID, hash); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), sr.Username, "auth.password_changed", "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) userDTO(user *store.User, roles []string) auth.UserDTO {
	if roles == nil {
		roles = rbac.RolesFor(user.IsStaff)
	}
	return auth.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		Rank:        user.Rank,
		Email:       user.Email,
		Roles:       roles,
		Permissions: h.policy.PermissionsFor(roles),
		Active:      user.Active,
	}
}
