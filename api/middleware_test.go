package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rpi-diario/core/auth"
	"rpi-diario/core/rbac"
	"rpi-diario/core/store"
)

func testPolicy(t *testing.T) *rbac.Policy {
	t.Helper()
	p, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return p
}

func TestRequirePermissionDeniesAgent(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermAccountsManage)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, &store.SessionRecord{
		Username: "agente",
		Roles:    []string{rbac.RoleAgent},
	}))
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", rr.Code)
	}
}

func TestRequirePermissionAllowsAdmin(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermAccountsManage)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, &store.SessionRecord{
		Username: "chefe",
		Roles:    []string{rbac.RoleAdmin},
	}))
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", rr.Code)
	}
}

func TestRequirePermissionWithoutSession(t *testing.T) {
	s := &Server{policy: testPolicy(t)}
	handler := s.requirePermission(rbac.PermReportsView)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", rr.Code)
	}
}

func TestWithSessionRejectsMissingCookie(t *testing.T) {
	s := &Server{}
	handler := s.withSession(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/reports/current", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", rr.Code)
	}
}

func TestLimiterRefillsAfterWindow(t *testing.T) {
	l := newLimiter(2, 50*time.Millisecond)
	if !l.allow("ip") || !l.allow("ip") {
		t.Fatalf("first two attempts must pass")
	}
	if l.allow("ip") {
		t.Fatalf("third attempt must be blocked")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.allow("ip") {
		t.Fatalf("attempt after refill must pass")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := newLimiter(1, time.Minute)
	if !l.allow("a") {
		t.Fatalf("first key blocked")
	}
	if l.allow("a") {
		t.Fatalf("exhausted key must block")
	}
	if !l.allow("b") {
		t.Fatalf("fresh key must pass")
	}
}
