package main

import (
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commonRun()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// opening the store runs the migration
			db, err := store.Open(cfg.Database, logger, globalFlags.debug)
			if err != nil {
				return err
			}
			defer closeDB(db, logger)
			logger.Info("schema up to date", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
