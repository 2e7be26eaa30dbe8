package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"rpi-diario/core/auth"
	"rpi-diario/core/rbac"
	"rpi-diario/core/store"
)

const (
	SessionCookieName = "rpi_session"
	CSRFCookieName    = "rpi_csrf"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, key string) (int64, bool) {
	raw := urlParam(r, key)
	if raw == "" {
		raw = pathParams(r)[key]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sessionFrom(r *http.Request) *store.SessionRecord {
	if v := r.Context().Value(auth.SessionContextKey); v != nil {
		return v.(*store.SessionRecord)
	}
	return nil
}

// userFromSession rebuilds the acting account from the session record. The
// staff flag derives from the admin role so report ownership checks do not
// need an extra store round trip.
func userFromSession(sr *store.SessionRecord) *store.User {
	u := &store.User{ID: sr.UserID, Username: sr.Username}
	for _, role := range sr.Roles {
		if role == rbac.RoleAdmin {
			u.IsStaff = true
		}
	}
	return u
}

func clientIP(r *http.Request) string {
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	return strings.TrimSpace(ip)
}

func isSecureRequest(r *http.Request) bool {
	return r != nil && r.TLS != nil
}
