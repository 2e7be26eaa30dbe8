package routegroups

import "net/http"

// Guards bundles the session and permission middleware so route groups can
// declare both in one call.
type Guards struct {
	Session func(http.HandlerFunc) http.HandlerFunc
	Perm    func(perm string) func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) SessionPerm(perm string, next http.HandlerFunc) http.HandlerFunc {
	return g.Session(g.Perm(perm)(next))
}
