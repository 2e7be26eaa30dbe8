package api

import "rpi-diario/api/handlers"

type routeHandlers struct {
	auth        *handlers.AuthHandler
	accounts    *handlers.AccountsHandler
	reports     *handlers.ReportsHandler
	occurrences *handlers.OccurrencesHandler
	catalogs    *handlers.CatalogsHandler
	analytics   *handlers.AnalyticsHandler
	logs        *handlers.LogsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:        handlers.NewAuthHandler(s.cfg, s.users, s.sessionManager, s.policy, s.audits, s.mailer, s.logger),
		accounts:    handlers.NewAccountsHandler(s.users, s.sessions, s.audits, s.mailer, s.logger),
		reports:     handlers.NewReportsHandler(s.cfg, s.reportsSvc, s.occurrences, s.audits, s.logger),
		occurrences: handlers.NewOccurrencesHandler(s.cfg, s.reportsSvc, s.occurrences, s.audits, s.logger),
		catalogs:    handlers.NewCatalogsHandler(s.catalogs, s.audits, s.logger),
		analytics:   handlers.NewAnalyticsHandler(s.cfg, s.occurrences, s.logger),
		logs:        handlers.NewLogsHandler(s.audits),
	}
}
