package handlers

import (
	"errors"
	"net/http"

	"rpi-diario/core/notify"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

// AccountsHandler is the staff surface for the registration workflow:
// listing accounts, approving pending ones and removing them.
type AccountsHandler struct {
	users    store.UsersStore
	sessions store.SessionStore
	audits   store.AuditStore
	mailer   *notify.Mailer
	logger   *utils.Logger
}

func NewAccountsHandler(users store.UsersStore, sessions store.SessionStore, audits store.AuditStore, mailer *notify.Mailer, logger *utils.Logger) *AccountsHandler {
	return &AccountsHandler{users: users, sessions: sessions, audits: audits, mailer: mailer, logger: logger}
}

func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AccountsHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListPendingUsers(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AccountsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := h.users.ActivateUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			http.Error(w, "account already active", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	actor := sessionFrom(r)
	h.audits.Log(r.Context(), actor.Username, "account.activate", user.Username)
	h.mailer.NotifyActivation(user.Email, user.FullName)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	actor := sessionFrom(r)
	if actor.UserID == id {
		http.Error(w, "cannot delete own account", http.StatusConflict)
		return
	}
	target, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if target.IsStaff {
		staff, err := h.users.CountStaff(r.Context())
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if staff <= 1 {
			http.Error(w, "cannot delete the last staff account", http.StatusConflict)
			return
		}
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			http.Error(w, "account owns reports and cannot be deleted", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.sessions.DeleteSessionsForUser(r.Context(), id)
	h.audits.Log(r.Context(), actor.Username, "account.delete", target.Username)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
