package rbac

import "testing"

func TestAdminWildcard(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	for _, perm := range []string{PermAccountsManage, PermAuditView, PermReportsExport, PermCatalogsManage} {
		if !p.Allowed([]string{RoleAdmin}, perm) {
			t.Fatalf("admin denied %s", perm)
		}
	}
}

func TestAgentScope(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	allowed := []string{PermReportsView, PermReportsManage, PermReportsExport, PermIncidentsWrite, PermAnalyticsView, PermCatalogsView}
	for _, perm := range allowed {
		if !p.Allowed([]string{RoleAgent}, perm) {
			t.Fatalf("agent denied %s", perm)
		}
	}
	denied := []string{PermAccountsManage, PermAuditView, PermCatalogsManage}
	for _, perm := range denied {
		if p.Allowed([]string{RoleAgent}, perm) {
			t.Fatalf("agent must not hold %s", perm)
		}
	}
	if p.Allowed(nil, PermReportsView) {
		t.Fatalf("no roles must grant nothing")
	}
}

func TestPermissionsForSortedAndComplete(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	admin := p.PermissionsFor(RolesFor(true))
	agent := p.PermissionsFor(RolesFor(false))
	if len(admin) <= len(agent) {
		t.Fatalf("admin set (%d) must exceed agent set (%d)", len(admin), len(agent))
	}
	for i := 1; i < len(agent); i++ {
		if agent[i-1] > agent[i] {
			t.Fatalf("permissions not sorted: %v", agent)
		}
	}
}
