package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func recalculateCommand() *cobra.Command {
	var hero string
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Rebuild duty ledgers from the full shift history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			asOf := a.engine.Now()
			encoder := json.NewEncoder(os.Stdout)
			if hero != "" {
				snapshot, err := a.engine.Recalculate(cmd.Context(), hero, asOf)
				if err != nil {
					return err
				}
				return encoder.Encode(snapshot)
			}

			report, err := a.engine.RecalculateAll(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			var errs []error
			for _, h := range report.Heroes {
				if h.Err != nil {
					a.logger.Error("hero not recalculated", zap.String("hero", h.Hero), zap.Error(h.Err))
					errs = append(errs, fmt.Errorf("%s: %w", h.Hero, h.Err))
				}
			}
			if err := encoder.Encode(report); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&hero, "hero", "", "only recalculate this hero")
	return cmd
}
