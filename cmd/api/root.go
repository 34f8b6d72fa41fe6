package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"conecta/internal/config"
	"conecta/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the API binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "conecta-api",
		Short:         "Conecta Lagoa API server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().String("log-format", "", "log format: json or text")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads configuration with the command's flags as the last layer.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.Setup("conecta-api", version, cfg.LogFormat, os.Stdout)
}
