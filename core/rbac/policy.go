// Package rbac maps account roles onto the permissions the HTTP guards
// check. The ruleset is fixed at startup; accounts only ever carry the two
// built-in roles.
package rbac

import (
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

const (
	PermReportsView    = "reports.view"
	PermReportsManage  = "reports.manage"
	PermReportsExport  = "reports.export"
	PermIncidentsView  = "incidents.view"
	PermIncidentsWrite = "incidents.write"
	PermAnalyticsView  = "analytics.view"
	PermCatalogsView   = "catalogs.view"
	PermCatalogsManage = "catalogs.manage"
	PermAccountsManage = "accounts.manage"
	PermAuditView      = "audit.view"
)

const modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.act == r.act || p.act == "*")
`

var agentPerms = []string{
	PermReportsView,
	PermReportsManage,
	PermReportsExport,
	PermIncidentsView,
	PermIncidentsWrite,
	PermAnalyticsView,
	PermCatalogsView,
}

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	if _, err := e.AddPolicy(RoleAdmin, "*"); err != nil {
		return nil, err
	}
	for _, perm := range agentPerms {
		if _, err := e.AddPolicy(RoleAgent, perm); err != nil {
			return nil, err
		}
	}
	// Admins inherit everything an agent can do even if the wildcard rule
	// is ever narrowed.
	if _, err := e.AddGroupingPolicy(RoleAdmin, RoleAgent); err != nil {
		return nil, err
	}
	return &Policy{enforcer: e}, nil
}

// Allowed reports whether any of the given roles grants perm.
func (p *Policy) Allowed(roles []string, perm string) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	for _, role := range roles {
		ok, err := p.enforcer.Enforce(role, perm)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// PermissionsFor flattens the permission set the roles grant, sorted for
// stable JSON output.
func (p *Policy) PermissionsFor(roles []string) []string {
	all := []string{
		PermReportsView, PermReportsManage, PermReportsExport,
		PermIncidentsView, PermIncidentsWrite,
		PermAnalyticsView,
		PermCatalogsView, PermCatalogsManage,
		PermAccountsManage, PermAuditView,
	}
	granted := make([]string, 0, len(all))
	for _, perm := range all {
		if p.Allowed(roles, perm) {
			granted = append(granted, perm)
		}
	}
	sort.Strings(granted)
	return granted
}

// RolesFor translates the stored staff flag into policy roles.
func RolesFor(isStaff bool) []string {
	if isStaff {
		return []string{RoleAdmin}
	}
	return []string{RoleAgent}
}
