package routegroups

import (
	"github.com/go-chi/chi/v5"

	"rpi-diario/api/handlers"
	"rpi-diario/core/rbac"
)

func RegisterCatalogs(apiRouter chi.Router, g Guards, catalogs *handlers.CatalogsHandler) {
	apiRouter.Route("/catalogs", func(catRouter chi.Router) {
		catRouter.MethodFunc("GET", "/natures", g.SessionPerm(rbac.PermCatalogsView, catalogs.ListNatures))
		catRouter.MethodFunc("GET", "/natures/search", g.SessionPerm(rbac.PermCatalogsView, catalogs.SearchNatures))
		catRouter.MethodFunc("POST", "/natures", g.SessionPerm(rbac.PermCatalogsManage, catalogs.CreateNature))
		catRouter.MethodFunc("PUT", "/natures/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.UpdateNature))
		catRouter.MethodFunc("DELETE", "/natures/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.DeleteNature))

		catRouter.MethodFunc("GET", "/municipalities", g.SessionPerm(rbac.PermCatalogsView, catalogs.ListMunicipalities))
		catRouter.MethodFunc("POST", "/municipalities", g.SessionPerm(rbac.PermCatalogsManage, catalogs.CreateMunicipality))
		catRouter.MethodFunc("PUT", "/municipalities/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.UpdateMunicipality))
		catRouter.MethodFunc("DELETE", "/municipalities/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.DeleteMunicipality))

		catRouter.MethodFunc("GET", "/units", g.SessionPerm(rbac.PermCatalogsView, catalogs.ListUnits))
		catRouter.MethodFunc("POST", "/units", g.SessionPerm(rbac.PermCatalogsManage, catalogs.CreateUnit))
		catRouter.MethodFunc("PUT", "/units/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.UpdateUnit))
		catRouter.MethodFunc("DELETE", "/units/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.DeleteUnit))

		catRouter.MethodFunc("GET", "/material-types", g.SessionPerm(rbac.PermCatalogsView, catalogs.ListMaterialTypes))
		catRouter.MethodFunc("POST", "/material-types", g.SessionPerm(rbac.PermCatalogsManage, catalogs.CreateMaterialType))
		catRouter.MethodFunc("DELETE", "/material-types/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.DeleteMaterialType))

		catRouter.MethodFunc("GET", "/instruments", g.SessionPerm(rbac.PermCatalogsView, catalogs.ListInstruments))
		catRouter.MethodFunc("POST", "/instruments", g.SessionPerm(rbac.PermCatalogsManage, catalogs.CreateInstrument))
		catRouter.MethodFunc("DELETE", "/instruments/{id:[0-9]+}", g.SessionPerm(rbac.PermCatalogsManage, catalogs.DeleteInstrument))
	})
}

func RegisterAccounts(apiRouter chi.Router, g Guards, accounts *handlers.AccountsHandler) {
	apiRouter.Route("/accounts", func(accRouter chi.Router) {
		accRouter.MethodFunc("GET", "/", g.SessionPerm(rbac.PermAccountsManage, accounts.List))
		accRouter.MethodFunc("GET", "/pending", g.SessionPerm(rbac.PermAccountsManage, accounts.ListPending))
		accRouter.MethodFunc("POST", "/{id:[0-9]+}/activate", g.SessionPerm(rbac.PermAccountsManage, accounts.Activate))
		accRouter.MethodFunc("DELETE", "/{id:[0-9]+}", g.SessionPerm(rbac.PermAccountsManage, accounts.Delete))
	})
}

func RegisterAnalytics(apiRouter chi.Router, g Guards, analytics *handlers.AnalyticsHandler) {
	apiRouter.Route("/analytics", func(anRouter chi.Router) {
		anRouter.MethodFunc("GET", "/seizures", g.SessionPerm(rbac.PermAnalyticsView, analytics.Seizures))
		anRouter.MethodFunc("GET", "/parties", g.SessionPerm(rbac.PermAnalyticsView, analytics.Parties))
	})
}
