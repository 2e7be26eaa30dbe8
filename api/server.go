package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rpi-diario/api/routegroups"
	"rpi-diario/config"
	"rpi-diario/core/auth"
	"rpi-diario/core/notify"
	"rpi-diario/core/rbac"
	"rpi-diario/core/reports"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type ServerDeps struct {
	Users          store.UsersStore
	Sessions       store.SessionStore
	Audits         store.AuditStore
	Catalogs       store.CatalogStore
	Reports        store.ReportsStore
	Occurrences    store.OccurrencesStore
	ReportsSvc     *reports.Service
	SessionManager *auth.SessionManager
	Policy         *rbac.Policy
	Mailer         *notify.Mailer
}

type Server struct {
	cfg             *config.AppConfig
	logger          *utils.Logger
	users           store.UsersStore
	sessions        store.SessionStore
	audits          store.AuditStore
	catalogs        store.CatalogStore
	reportsStore    store.ReportsStore
	occurrences     store.OccurrencesStore
	reportsSvc      *reports.Service
	sessionManager  *auth.SessionManager
	policy          *rbac.Policy
	mailer          *notify.Mailer
	activityTracker *sessionActivity
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{
		cfg:             cfg,
		logger:          logger,
		users:           deps.Users,
		sessions:        deps.Sessions,
		audits:          deps.Audits,
		catalogs:        deps.Catalogs,
		reportsStore:    deps.Reports,
		occurrences:     deps.Occurrences,
		reportsSvc:      deps.ReportsSvc,
		sessionManager:  deps.SessionManager,
		policy:          deps.Policy,
		mailer:          deps.Mailer,
		activityTracker: newSessionActivity(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.loggingMiddleware)

	h := s.newRouteHandlers()
	g := routegroups.Guards{
		Session: s.withSession,
		Perm:    s.requirePermission,
	}

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(s.jsonMiddleware)
		apiRouter.MethodFunc("POST", "/auth/login", s.rateLimitMiddleware(h.auth.Login))
		apiRouter.MethodFunc("POST", "/auth/register", s.rateLimitMiddleware(h.auth.Register))
		apiRouter.MethodFunc("POST", "/auth/logout", h.auth.Logout)
		apiRouter.MethodFunc("GET", "/auth/me", s.withSession(h.auth.Me))
		apiRouter.MethodFunc("POST", "/auth/change-password", s.withSession(h.auth.ChangePassword))

		routegroups.RegisterAccounts(apiRouter, g, h.accounts)
		routegroups.RegisterReports(apiRouter, g, h.reports)
		routegroups.RegisterOccurrences(apiRouter, g, h.occurrences)
		routegroups.RegisterCatalogs(apiRouter, g, h.catalogs)
		routegroups.RegisterAnalytics(apiRouter, g, h.analytics)
		apiRouter.MethodFunc("GET", "/logs", g.SessionPerm(rbac.PermAuditView, h.logs.List))
	})

	// Uploaded photos; the PDF embeds them straight from disk, the frontend
	// loads them through here.
	fs := http.StripPrefix("/media/", http.FileServer(http.Dir(s.cfg.MediaDir)))
	r.MethodFunc("GET", "/media/*", s.withSession(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))

	return r
}
