package routegroups

import (
	"github.com/go-chi/chi/v5"

	"rpi-diario/api/handlers"
	"rpi-diario/core/rbac"
)

// Reports and occurrences share the /reports subtree, so both groups register
// flat patterns instead of mounted subrouters.
func RegisterReports(apiRouter chi.Router, g Guards, reports *handlers.ReportsHandler) {
	apiRouter.MethodFunc("GET", "/reports", g.SessionPerm(rbac.PermReportsView, reports.List))
	apiRouter.MethodFunc("POST", "/reports", g.SessionPerm(rbac.PermReportsManage, reports.Start))
	apiRouter.MethodFunc("GET", "/reports/current", g.SessionPerm(rbac.PermReportsView, reports.Current))
	apiRouter.MethodFunc("GET", "/reports/{id:[0-9]+}", g.SessionPerm(rbac.PermReportsView, reports.Get))
	apiRouter.MethodFunc("POST", "/reports/{id:[0-9]+}/finalize", g.SessionPerm(rbac.PermReportsManage, reports.Finalize))
	apiRouter.MethodFunc("POST", "/reports/{id:[0-9]+}/reopen", g.SessionPerm(rbac.PermReportsManage, reports.Reopen))
	apiRouter.MethodFunc("GET", "/reports/{id:[0-9]+}/pdf", g.SessionPerm(rbac.PermReportsExport, reports.PDF))
}

func RegisterOccurrences(apiRouter chi.Router, g Guards, occurrences *handlers.OccurrencesHandler) {
	apiRouter.MethodFunc("GET", "/reports/{id:[0-9]+}/occurrences", g.SessionPerm(rbac.PermIncidentsView, occurrences.ListByReport))
	apiRouter.MethodFunc("POST", "/reports/{id:[0-9]+}/occurrences", g.SessionPerm(rbac.PermIncidentsWrite, occurrences.Create))

	apiRouter.MethodFunc("GET", "/occurrences/{id:[0-9]+}", g.SessionPerm(rbac.PermIncidentsView, occurrences.Get))
	apiRouter.MethodFunc("PUT", "/occurrences/{id:[0-9]+}", g.SessionPerm(rbac.PermIncidentsWrite, occurrences.Update))
	apiRouter.MethodFunc("DELETE", "/occurrences/{id:[0-9]+}", g.SessionPerm(rbac.PermIncidentsWrite, occurrences.Delete))
	apiRouter.MethodFunc("POST", "/occurrences/{id:[0-9]+}/photos", g.SessionPerm(rbac.PermIncidentsWrite, occurrences.UploadPhoto))
	apiRouter.MethodFunc("DELETE", "/occurrences/{id:[0-9]+}/photos/{photo_id:[0-9]+}", g.SessionPerm(rbac.PermIncidentsWrite, occurrences.DeletePhoto))
}
