package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habittracker/pkg/config"
	"habittracker/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigEnv string
	ConfigDir string
	LogLevel  string
}

// NewRootCommand creates the habitd command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "habitd",
		Short:         "Habit tracker service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigEnv, "env", config.GetConfigEnv(), "config environment (loads <config-dir>/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", config.GetEnv("CONFIG_DIR", "config"), "directory holding base.yaml")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", config.GetEnv("LOG_LEVEL", "info"), "debug|info|warn|error")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// load reads and validates the configuration and builds the logger.
func (o *RootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigEnv, o.ConfigDir)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(o.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}
