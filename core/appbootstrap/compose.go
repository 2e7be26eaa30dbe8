package appbootstrap

import (
	"context"
	"strings"

	"rpi-diario/api"
	"rpi-diario/config"
	"rpi-diario/core/auth"
	"rpi-diario/core/notify"
	"rpi-diario/core/rbac"
	"rpi-diario/core/reports"
	"rpi-diario/core/retention"
	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	users      store.UsersStore
	workers    []worker
}

type worker interface {
	Start() error
	Stop()
}

func composeRuntime(cfg *config.AppConfig, db *store.DB, logger *utils.Logger) (*runtimeComposition, error) {
	users := store.NewUsersStore(db)
	sessions := store.NewSessionStore(db)
	audits := store.NewAuditStore(db)
	catalogs := store.NewCatalogStore(db)
	reportsStore := store.NewReportsStore(db)
	occurrences := store.NewOccurrencesStore(db)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}
	loc := shift.Location(cfg.Shift.TimeZone)
	reportsSvc := reports.NewService(reportsStore, occurrences, audits, loc, logger)
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	mailer := notify.NewMailer(cfg.Mail, logger)
	retentionWorker := retention.NewWorker(cfg.Audit, audits, sessions, logger)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Users:          users,
			Sessions:       sessions,
			Audits:         audits,
			Catalogs:       catalogs,
			Reports:        reportsStore,
			Occurrences:    occurrences,
			ReportsSvc:     reportsSvc,
			SessionManager: sessionManager,
			Policy:         policy,
			Mailer:         mailer,
		},
		users:   users,
		workers: []worker{retentionWorker},
	}, nil
}

// ensureAdmin creates the bootstrap staff account on a fresh database. The
// generated password is logged once; it must be changed after first login.
func ensureAdmin(ctx context.Context, cfg *config.AppConfig, users store.UsersStore, logger *utils.Logger) error {
	count, err := users.CountStaff(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	password, err := utils.RandString(12)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return err
	}
	admin := &store.User{
		Username:     "admin",
		FullName:     "Administrador",
		PasswordHash: hash,
		IsStaff:      true,
		Active:       true,
	}
	if _, err := users.CreateUser(ctx, admin); err != nil {
		if err == store.ErrConflict {
			// Account exists but lost the staff flag; leave it alone.
			return nil
		}
		return err
	}
	logger.Printf("bootstrap admin created, username=admin password=%s", strings.TrimSpace(password))
	return nil
}
