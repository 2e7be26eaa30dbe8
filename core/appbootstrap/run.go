// Package appbootstrap wires config, storage, services and workers into the
// running HTTP server.
package appbootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rpi-diario/api"
	"rpi-diario/config"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

// Run boots the application and blocks until SIGINT/SIGTERM.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLogger()
	defer logger.Sync()

	db, err := store.Open(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := store.ApplyMigrations(ctx, db); err != nil {
		cancel()
		return err
	}
	cancel()

	runtime, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = ensureAdmin(ctx, cfg, runtime.users, logger)
	cancel()
	if err != nil {
		return err
	}

	for _, w := range runtime.workers {
		if err := w.Start(); err != nil {
			return err
		}
	}
	defer func() {
		for _, w := range runtime.workers {
			w.Stop()
		}
	}()

	server := api.NewServer(cfg, runtime.serverDeps, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (driver=%s)", cfg.ListenAddr, cfg.DBDriver)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Printf("shutting down on signal %s", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
