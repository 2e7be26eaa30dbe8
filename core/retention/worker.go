// Package retention runs the scheduled housekeeping jobs: audit-log purge
// past the retention window and expired-session cleanup.
package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"rpi-diario/config"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type Worker struct {
	cfg      config.AuditConfig
	audits   store.AuditStore
	sessions store.SessionStore
	logger   *utils.Logger
	cron     *cron.Cron
}

func NewWorker(cfg config.AuditConfig, audits store.AuditStore, sessions store.SessionStore, logger *utils.Logger) *Worker {
	return &Worker{cfg: cfg, audits: audits, sessions: sessions, logger: logger}
}

func (w *Worker) Start() error {
	schedule := w.cfg.PurgeSchedule
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(schedule, w.runOnce); err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	if w.cron != nil {
		ctx := w.cron.Stop()
		<-ctx.Done()
	}
}

func (w *Worker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	days := w.cfg.RetentionDays
	if days <= 0 {
		days = 180
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	if n, err := w.audits.PurgeOlderThan(ctx, cutoff); err != nil {
		w.logger.Errorf("audit purge failed: %v", err)
	} else if n > 0 {
		w.logger.Printf("audit purge removed %d entries older than %s", n, cutoff.Format("2006-01-02"))
	}
	if n, err := w.sessions.PurgeExpired(ctx, time.Now().UTC()); err != nil {
		w.logger.Errorf("session purge failed: %v", err)
	} else if n > 0 {
		w.logger.Printf("session purge removed %d expired sessions", n)
	}
}
