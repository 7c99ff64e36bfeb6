package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/api"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/trigger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the optional daily reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return serveRun(a)
		},
	}
}

func serveRun(a *app) error {
	logger := a.logger
	if !globalFlags.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(a.engine, a.store, cfg.API, logger)
	metricsHandler := promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           server.Router(metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Trigger.Enabled {
		at, err := cfg.Trigger.TimeOfDay()
		if err != nil {
			return err
		}
		daily := trigger.NewDaily(at, func(ctx context.Context, now time.Time) error {
			report, err := a.engine.Reconcile(ctx, now)
			if err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				logger.Warn("reconciliation incomplete", zap.String("run", report.RunID), zap.Int("failed", len(failed)))
			}
			return nil
		}, logger)
		daily.Start()
		defer daily.Stop()
	}

	// Channel to listen for termination signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.API.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until a signal is received or the server dies
	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
