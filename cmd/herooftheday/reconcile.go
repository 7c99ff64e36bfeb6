package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func reconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Credit duty time up to now for every hero",
		Long: "Runs a single reconciliation tick. Meant to be invoked once a day " +
			"by an external scheduler.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.engine.Reconcile(cmd.Context(), a.engine.Now())
			if err != nil {
				return err
			}
			for _, h := range report.Heroes {
				if h.Err != nil {
					a.logger.Error("hero not reconciled", zap.String("hero", h.Hero), zap.Error(h.Err))
				}
			}
			if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d heroes failed", len(failed), len(report.Heroes))
			}
			return nil
		},
	}
}
