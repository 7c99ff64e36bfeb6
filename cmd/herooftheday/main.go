package main

import (
	"fmt"
	"os"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/config"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/directory"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/metrics"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const programName = "herooftheday"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
	cfg        *config.Config
)

func commonRun() (*zap.Logger, error) {
	logger, err := utils.GetLogger(globalFlags.debug)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	// Configure max processes with our logger, toss undo func
	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		return nil, err
	}
	return logger, nil
}

// app holds everything a command needs to drive the engine.
type app struct {
	logger    *zap.Logger
	db        *gorm.DB
	store     *store.Store
	engine    *duty.Engine
	registry  *prometheus.Registry
	closeSync func() error
}

func newApp() (*app, error) {
	logger, err := commonRun()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Database, logger, globalFlags.debug)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	syncer, closeSync, err := directory.FromConfig(cfg.Directory, logger)
	if err != nil {
		closeDB(db, logger)
		return nil, fmt.Errorf("directory: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	st := store.New(db)
	engine := duty.New(st,
		duty.WithDirectory(syncer),
		duty.WithLogger(logger),
		duty.WithMetrics(metrics.New(registry)),
		duty.WithAttempts(cfg.Reconcile.Attempts),
		duty.WithConcurrency(cfg.Reconcile.Concurrency),
		duty.WithSyncTimeout(cfg.Directory.Timeout.Std()),
	)
	return &app{
		logger:    logger,
		db:        db,
		store:     st,
		engine:    engine,
		registry:  registry,
		closeSync: closeSync,
	}, nil
}

func (a *app) Close() {
	if err := a.closeSync(); err != nil {
		a.logger.Warn("failed to close directory", zap.Error(err))
	}
	closeDB(a.db, a.logger)
	_ = a.logger.Sync()
}

func closeDB(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Duty rotation schedule and attendance reconciliation",
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file (JSON or YAML)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(reconcileCommand())
	rootCmd.AddCommand(recalculateCommand())
	rootCmd.AddCommand(migrateCommand())

	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
