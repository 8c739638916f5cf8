package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recruitai-backend/internal/bootstrap"
	"recruitai-backend/internal/shared/config"
	"recruitai-backend/internal/shared/server"
	"recruitai-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()

	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("api.bootstrap_failed", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Reconciler.Start(); err != nil {
		telemetry.Error("api.reconciler_failed", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// Long enough for a screening upload plus the model call.
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("api.listening", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		telemetry.Info("api.shutdown", map[string]any{"signal": sig.String()})
	case err := <-errCh:
		telemetry.Error("api.server_failed", map[string]any{"error": err})
	}

	app.Reconciler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Error("api.shutdown_failed", map[string]any{"error": err})
	}
}
