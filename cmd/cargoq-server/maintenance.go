package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/config"
	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/metrics"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema to the configured database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Database.Driver == config.DriverMemory {
			a.logger.Info("Memory driver has no schema; nothing to migrate")
		}
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired messages once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		sweeper, err := a.newSweeper(m)
		if err != nil {
			return err
		}

		deleted, err := sweeper.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		a.logger.Infof("Sweep complete: deleted=%d", deleted)
		return nil
	},
}
