// Package main provides the cargo-queue server executable: the HTTP API, the
// expiry sweeper and a few maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/api"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "cargoq-server",
	Short:         "cargo-queue message queue and topic fan-out server",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: ./.env if present)")
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
