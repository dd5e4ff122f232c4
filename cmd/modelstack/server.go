package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelstack/modelstack/internal/shell/api"
)

// serveAPI runs the read-only status HTTP server until SIGINT/SIGTERM.
func serveAPI(ctx context.Context, a *app) error {
	handler := api.NewHandler(a.manager, a.store, a.logger)

	srv := &http.Server{
		Addr:         a.cfg.Serve.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  a.cfg.Serve.ReadTimeout,
		WriteTimeout: a.cfg.Serve.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting status API", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Serve.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
