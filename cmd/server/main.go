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

	"github.com/erp/unify/internal/bootstrap"
	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/interfaces/http/handler"
	"github.com/erp/unify/internal/interfaces/http/middleware"
	"github.com/erp/unify/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	log := app.Logger

	if err := run(ctx, app); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = app.Close(context.Background())
		os.Exit(1)
	}
	if err := app.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown incomplete: %v\n", err)
	}
}

func run(ctx context.Context, app *bootstrap.App) error {
	cfg, log := app.Config, app.Logger
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(app.Meter("unify.http"), app.Registry)
	if err != nil {
		return err
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Metrics:        httpMetrics,
		Gatherer:       app.Registry,
	}, router.Handlers{
		Pipeline: handler.NewPipelineHandler(app.Runner, app.Sources),
		Advisor:  handler.NewAdvisorHandler(app.Advisor),
		Health:   handler.NewHealthHandler(app.DB, app.Advisor.BreakerState),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}
