package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryanm101/gamefuse/internal/app"
	"github.com/ryanm101/gamefuse/internal/config"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	logging.Setup(cfg.Logging)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		logging.Error("failed to start", "error", err)
		os.Exit(1)
	}

	var db pinger
	if a.Store != nil {
		db = a.Store.Conn()
	}
	server := NewServer(a.Orchestrator, db)

	port := os.Getenv("GAMEFUSE_PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("gamefuse web listening", "addr", "http://localhost:"+port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("server error", "error", err)
	}

	if err := a.Close(); err != nil {
		logging.Error("failed to close store", "error", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		logging.Error("failed to shutdown tracing", "error", err)
	}
}
